package misc

import "testing"

func TestGenerateRandomState(t *testing.T) {
	first, err := GenerateRandomState()
	if err != nil {
		t.Fatalf("GenerateRandomState() error = %v", err)
	}
	second, err := GenerateRandomState()
	if err != nil {
		t.Fatalf("GenerateRandomState() error = %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("state length = %d, want 32", len(first))
	}
	if first == second {
		t.Fatal("two states should differ")
	}
}

func TestParseOAuthCallback(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OAuthCallback
		wantErr bool
	}{
		{
			name:  "Full URL",
			input: "http://localhost:8080/auth/callback?code=M.abc&state=s1",
			want:  OAuthCallback{Code: "M.abc", State: "s1"},
		},
		{
			name:  "Query only",
			input: "?code=c&state=s",
			want:  OAuthCallback{Code: "c", State: "s"},
		},
		{
			name:  "Bare pairs",
			input: "code=c&state=s",
			want:  OAuthCallback{Code: "c", State: "s"},
		},
		{
			name:  "Fragment",
			input: "http://localhost:8080/auth/callback#code=c&state=s",
			want:  OAuthCallback{Code: "c", State: "s"},
		},
		{
			name:  "Error",
			input: "http://localhost:8080/auth/callback?error=access_denied&error_description=declined&state=s",
			want:  OAuthCallback{State: "s", Error: "access_denied", ErrorDescription: "declined"},
		},
		{
			name:  "Missing code is not a parse error",
			input: "http://localhost:8080/auth/callback?state=s",
			want:  OAuthCallback{State: "s"},
		},
		{name: "Empty", input: "  ", wantErr: true},
		{name: "Garbage", input: "notaurl", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOAuthCallback(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}
