package minecraft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cryovex/mcauth/internal/misc"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by session loaders when nothing has been saved.
var ErrNoSession = errors.New("no saved session")

// SessionFileName is the file name of the saved session inside the auth directory.
const SessionFileName = "auth.json"

// SaveTokenToFile writes the session as JSON to authFilePath with owner-only permissions.
// The file is written to a temporary sibling first and renamed into place.
func (s *AuthSession) SaveTokenToFile(authFilePath string) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("refusing to save session: %w", err)
	}
	misc.LogSavingCredentials(authFilePath)

	if err := os.MkdirAll(filepath.Dir(authFilePath), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(authFilePath), ".auth-*.json")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token to file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token to file: %w", err)
	}
	if err = os.Rename(tmpName, authFilePath); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// LoadTokenFromFile reads a session written by SaveTokenToFile or by earlier launcher versions.
// A missing file yields ErrNoSession.
func LoadTokenFromFile(authFilePath string) (*AuthSession, error) {
	data, err := os.ReadFile(authFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return DecodeSession(data)
}

// DecodeSession parses a saved session and checks that every field is present.
func DecodeSession(data []byte) (*AuthSession, error) {
	var session AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("saved session is incomplete: %w", err)
	}
	return &session, nil
}

// ExpiresAt reads the exp claim of the access token. The token is issued by the game
// services as a JWT; its signature is not checked here. ok is false when the token is not a
// JWT or carries no expiry.
func (s *AuthSession) ExpiresAt() (expiresAt time.Time, ok bool) {
	if s == nil || s.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the access token's expiry has passed at now. Tokens without a
// readable expiry are treated as not expired.
func (s *AuthSession) Expired(now time.Time) bool {
	expiresAt, ok := s.ExpiresAt()
	return ok && !now.Before(expiresAt)
}
