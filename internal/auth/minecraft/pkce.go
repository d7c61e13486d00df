package minecraft

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// codeVerifierLength is the maximum verifier length RFC 7636 allows.
	codeVerifierLength = 128

	// unreservedCharset is the RFC 3986 unreserved set the verifier is drawn from.
	unreservedCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

	// rejectionLimit is the largest multiple of len(unreservedCharset) below 256.
	// Bytes at or above it are discarded so every character is equally likely.
	rejectionLimit = 256 - 256%len(unreservedCharset)
)

// GeneratePKCECodes generates a PKCE code verifier and challenge pair
// following RFC 7636 with the S256 method.
//
// Returns:
//   - *PKCECodes: A struct containing the code verifier and challenge
func GeneratePKCECodes() *PKCECodes {
	verifier, err := generateCodeVerifier(rand.Reader)
	if err != nil {
		// crypto/rand.Reader does not fail on supported platforms.
		panic(fmt.Sprintf("minecraft: generate code verifier: %v", err))
	}
	return &PKCECodes{
		CodeVerifier:  verifier,
		CodeChallenge: ChallengeFromVerifier(verifier),
	}
}

// generateCodeVerifier draws codeVerifierLength characters uniformly from unreservedCharset.
func generateCodeVerifier(random io.Reader) (string, error) {
	out := make([]byte, 0, codeVerifierLength)
	buf := make([]byte, codeVerifierLength+codeVerifierLength/4)
	for len(out) < codeVerifierLength {
		if _, err := io.ReadFull(random, buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectionLimit {
				continue
			}
			out = append(out, unreservedCharset[int(b)%len(unreservedCharset)])
			if len(out) == codeVerifierLength {
				break
			}
		}
	}
	return string(out), nil
}

// ChallengeFromVerifier returns the S256 code challenge for verifier: the SHA-256 digest
// of its bytes, base64url encoded without padding.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
