package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/misc"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig captures configuration for the object storage-backed session store.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
	PathStyle bool
}

// ObjectStore persists the session as <prefix>/auth.json in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
}

// NewObjectStore initializes an object storage backed session store.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("object store: access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store: secret key is required")
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("object store: create client: %w", err)
	}
	return &ObjectStore{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("object store: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("object store: create bucket: %w", err)
	}
	return nil
}

// Location returns the bucket URL of the session object.
func (s *ObjectStore) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.objectKey())
}

// Save uploads the session object.
func (s *ObjectStore) Save(ctx context.Context, session *minecraft.AuthSession) (string, error) {
	if err := session.Validate(); err != nil {
		return "", fmt.Errorf("object store: refusing to save session: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("object store: marshal session: %w", err)
	}
	location := s.Location()
	misc.LogSavingCredentials(location)

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, s.objectKey(), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("object store: put object %s: %w", s.objectKey(), err)
	}
	return location, nil
}

// Load downloads the session object. A missing object yields minecraft.ErrNoSession.
func (s *ObjectStore) Load(ctx context.Context) (*minecraft.AuthSession, error) {
	object, err := s.client.GetObject(ctx, s.cfg.Bucket, s.objectKey(), minio.GetObjectOptions{})
	if err != nil {
		if isObjectNotFound(err) {
			return nil, minecraft.ErrNoSession
		}
		return nil, fmt.Errorf("object store: get object %s: %w", s.objectKey(), err)
	}
	defer func() {
		_ = object.Close()
	}()
	data, err := io.ReadAll(object)
	if err != nil {
		if isObjectNotFound(err) {
			return nil, minecraft.ErrNoSession
		}
		return nil, fmt.Errorf("object store: read object %s: %w", s.objectKey(), err)
	}
	return minecraft.DecodeSession(data)
}

// Delete removes the session object. Deleting a missing object is not an error.
func (s *ObjectStore) Delete(ctx context.Context) error {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, s.objectKey(), minio.RemoveObjectOptions{})
	if err != nil && !isObjectNotFound(err) {
		return fmt.Errorf("object store: delete object %s: %w", s.objectKey(), err)
	}
	return nil
}

func (s *ObjectStore) objectKey() string {
	if s.cfg.Prefix == "" {
		return minecraft.SessionFileName
	}
	return s.cfg.Prefix + "/" + minecraft.SessionFileName
}

func isObjectNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}
