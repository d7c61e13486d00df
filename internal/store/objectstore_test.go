package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
)

// fakeS3 is a path-style bucket server covering the calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, string) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, strings.TrimPrefix(srv.URL, "http://")
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			f.buckets[bucket] = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := bucket + "/" + key
	switch r.Method {
	case http.MethodPut:
		body, err := readS3Body(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[id] = body
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	return data, ok
}

// readS3Body decodes aws-chunked uploads, which the client uses over plain HTTP.
func readS3Body(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}
	var out bytes.Buffer
	reader := bufio.NewReader(r.Body)
	for {
		header, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeField, _, _ := strings.Cut(strings.TrimSpace(header), ";")
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err = io.CopyN(&out, reader, size); err != nil {
			return nil, err
		}
		if _, err = reader.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestObjectStore(t *testing.T, endpoint, prefix string) *ObjectStore {
	t.Helper()
	s, err := NewObjectStore(ObjectStoreConfig{
		Endpoint:  endpoint,
		Bucket:    "sessions",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
		Prefix:    prefix,
		PathStyle: true,
	})
	if err != nil {
		t.Fatalf("NewObjectStore: %v", err)
	}
	return s
}

func testSession() *minecraft.AuthSession {
	return &minecraft.AuthSession{
		AccessToken:  "mc-access",
		RefreshToken: "ms-refresh",
		Username:     "Steve",
		AccountID:    "069a79f444e94726a5befca90e38aaf5",
	}
}

func TestObjectStoreRoundTrip(t *testing.T) {
	t.Parallel()
	fake, endpoint := newFakeS3(t, "sessions")
	s := newTestObjectStore(t, endpoint, "/launcher/")
	ctx := context.Background()

	location, err := s.Save(ctx, testSession())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if location != "s3://sessions/launcher/auth.json" {
		t.Fatalf("location = %q", location)
	}
	raw, ok := fake.object("sessions/launcher/auth.json")
	if !ok {
		t.Fatal("object not written under the prefix")
	}
	if !bytes.Contains(raw, []byte(`"uuid": "069a79f444e94726a5befca90e38aaf5"`)) {
		t.Fatalf("unexpected document: %s", raw)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *testSession() {
		t.Fatalf("loaded %v", loaded)
	}

	if err = s.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err = s.Load(ctx); !errors.Is(err, minecraft.ErrNoSession) {
		t.Fatalf("Load after Delete err = %v, want ErrNoSession", err)
	}
	if err = s.Delete(ctx); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestObjectStoreRejectsIncompleteSession(t *testing.T) {
	t.Parallel()
	fake, endpoint := newFakeS3(t, "sessions")
	s := newTestObjectStore(t, endpoint, "")
	session := testSession()
	session.RefreshToken = ""

	if _, err := s.Save(context.Background(), session); err == nil {
		t.Fatal("expected incomplete session to be rejected")
	}
	if _, ok := fake.object("sessions/auth.json"); ok {
		t.Fatal("incomplete session was uploaded")
	}
}

func TestObjectStoreEnsureBucket(t *testing.T) {
	t.Parallel()
	fake, endpoint := newFakeS3(t)
	s := newTestObjectStore(t, endpoint, "")

	if err := s.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	fake.mu.Lock()
	created := fake.buckets["sessions"]
	fake.mu.Unlock()
	if !created {
		t.Fatal("bucket was not created")
	}
}

func TestNewObjectStoreValidation(t *testing.T) {
	t.Parallel()
	base := ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"}
	tests := []struct {
		name   string
		mutate func(*ObjectStoreConfig)
	}{
		{name: "endpoint", mutate: func(c *ObjectStoreConfig) { c.Endpoint = " " }},
		{name: "bucket", mutate: func(c *ObjectStoreConfig) { c.Bucket = "" }},
		{name: "access key", mutate: func(c *ObjectStoreConfig) { c.AccessKey = "" }},
		{name: "secret key", mutate: func(c *ObjectStoreConfig) { c.SecretKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewObjectStore(cfg); err == nil {
				t.Fatalf("expected missing %s to fail", tt.name)
			}
		})
	}
}
