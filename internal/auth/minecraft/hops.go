package minecraft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/sjson"
)

// ExchangeCodeForTokens exchanges the authorization code for Microsoft tokens.
// redirectURI must be the one the code was issued for; empty uses the configured redirect.
// The form carries the PKCE verifier in place of a client secret.
func (a *MinecraftAuth) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string, pkceCodes *PKCECodes) (*ProviderTokenBundle, error) {
	if redirectURI == "" {
		redirectURI = a.redirectURI
	}
	if pkceCodes == nil {
		return nil, fmt.Errorf("PKCE codes are required for token exchange")
	}
	form := url.Values{
		"client_id":     {a.clientID},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
		"scope":         {strings.Join(a.scopes, " ")},
		"code_verifier": {pkceCodes.CodeVerifier},
	}
	resp, err := a.exchanger.do(ctx, hopRequest{
		hop:         HopMicrosoftToken,
		method:      http.MethodPost,
		url:         a.endpoints.Token,
		body:        []byte(form.Encode()),
		contentType: contentTypeForm,
		required:    []string{"access_token", "refresh_token"},
	})
	if err != nil {
		return nil, err
	}
	return &ProviderTokenBundle{
		AccessToken:  resp.Get("access_token").String(),
		RefreshToken: resp.Get("refresh_token").String(),
	}, nil
}

// AuthenticateXboxLive trades the Microsoft access token for an Xbox Live user token.
func (a *MinecraftAuth) AuthenticateXboxLive(ctx context.Context, msAccessToken string) (*ServiceToken, error) {
	body := []byte(`{"Properties":{"AuthMethod":"RPS","SiteName":"user.auth.xboxlive.com"},"RelyingParty":"http://auth.xboxlive.com","TokenType":"JWT"}`)
	body, err := sjson.SetBytes(body, "Properties.RpsTicket", "d="+msAccessToken)
	if err != nil {
		return nil, fmt.Errorf("build xbox live request: %w", err)
	}
	resp, err := a.exchanger.do(ctx, hopRequest{
		hop:         HopXboxLive,
		method:      http.MethodPost,
		url:         a.endpoints.XboxLive,
		body:        body,
		contentType: contentTypeJSON,
		required:    []string{"Token"},
	})
	if err != nil {
		return nil, err
	}
	return &ServiceToken{Token: resp.Get("Token").String()}, nil
}

// AuthorizeXSTS trades the Xbox Live user token for an XSTS token scoped to the Minecraft
// services relying party. The user hash comes from the first xui claim.
func (a *MinecraftAuth) AuthorizeXSTS(ctx context.Context, xblToken string) (*ServiceToken, error) {
	body := []byte(`{"Properties":{"SandboxId":"RETAIL","UserTokens":[]},"RelyingParty":"rp://api.minecraftservices.com/","TokenType":"JWT"}`)
	body, err := sjson.SetBytes(body, "Properties.UserTokens.-1", xblToken)
	if err != nil {
		return nil, fmt.Errorf("build xsts request: %w", err)
	}
	resp, err := a.exchanger.do(ctx, hopRequest{
		hop:         HopXSTS,
		method:      http.MethodPost,
		url:         a.endpoints.XSTS,
		body:        body,
		contentType: contentTypeJSON,
		required:    []string{"Token", "DisplayClaims.xui", "DisplayClaims.xui.0.uhs"},
	})
	if err != nil {
		return nil, err
	}
	return &ServiceToken{
		Token:    resp.Get("Token").String(),
		UserHash: resp.Get("DisplayClaims.xui.0.uhs").String(),
	}, nil
}

// LoginWithXbox exchanges the XSTS identity for a Minecraft services access token.
func (a *MinecraftAuth) LoginWithXbox(ctx context.Context, userHash, xstsToken string) (*ResourceLoginResult, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "identityToken", fmt.Sprintf("XBL3.0 x=%s;%s", userHash, xstsToken))
	if err != nil {
		return nil, fmt.Errorf("build minecraft login request: %w", err)
	}
	resp, err := a.exchanger.do(ctx, hopRequest{
		hop:         HopMinecraftLogin,
		method:      http.MethodPost,
		url:         a.endpoints.LoginWithXbox,
		body:        body,
		contentType: contentTypeJSON,
		required:    []string{"access_token"},
	})
	if err != nil {
		return nil, err
	}
	return &ResourceLoginResult{AccessToken: resp.Get("access_token").String()}, nil
}

// FetchProfile reads the Minecraft profile name and UUID.
func (a *MinecraftAuth) FetchProfile(ctx context.Context, mcAccessToken string) (*Profile, error) {
	resp, err := a.exchanger.do(ctx, hopRequest{
		hop:      HopProfile,
		method:   http.MethodGet,
		url:      a.endpoints.Profile,
		bearer:   mcAccessToken,
		required: []string{"name", "id"},
	})
	if err != nil {
		return nil, err
	}
	return &Profile{
		Username:  resp.Get("name").String(),
		AccountID: resp.Get("id").String(),
	}, nil
}
