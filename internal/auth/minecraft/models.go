// Package minecraft implements the five-hop Microsoft account login used by the launcher:
// an OAuth2 authorization code flow with PKCE against Microsoft, followed by Xbox Live user
// authentication, XSTS authorization, the Minecraft services login and the profile fetch.
//
// An Orchestrator runs one attempt through these hops and produces exactly one AuthSession
// or one *ChainError.
package minecraft

import (
	"fmt"
	"strings"

	"github.com/cryovex/mcauth/internal/util"
)

// PKCECodes holds the PKCE verifier and its derived challenge for one login attempt.
type PKCECodes struct {
	// CodeVerifier is the random secret sent with the token exchange.
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge is the S256 transform of CodeVerifier sent with the authorization request.
	CodeChallenge string `json:"code_challenge"`
}

// AuthorizationResult is the outcome of the authorization redirect: either Code is set,
// or ErrorCode (and usually ErrorDescription) is.
type AuthorizationResult struct {
	Code             string
	State            string
	ErrorCode        string
	ErrorDescription string
	// RedirectURI is the redirect the code was issued for. The token exchange must repeat it.
	RedirectURI string
}

// Succeeded reports whether the redirect carried an authorization code.
func (r *AuthorizationResult) Succeeded() bool {
	return r != nil && r.ErrorCode == "" && r.Code != ""
}

// ProviderTokenBundle is the Microsoft token response.
type ProviderTokenBundle struct {
	AccessToken  string
	RefreshToken string
}

// ServiceToken is returned by the Xbox Live and XSTS hops. UserHash is only set by XSTS.
type ServiceToken struct {
	Token    string
	UserHash string
}

// ResourceLoginResult is the Minecraft services login response.
type ResourceLoginResult struct {
	AccessToken string
}

// Profile identifies the Minecraft account.
type Profile struct {
	Username  string
	AccountID string
}

// AuthSession is the result of a successful login. The JSON keys match the launcher's
// existing auth.json format.
type AuthSession struct {
	// AccessToken is the Minecraft services bearer token.
	AccessToken string `json:"access_token"`
	// RefreshToken is the Microsoft refresh token, passed through unchanged.
	RefreshToken string `json:"refresh_token"`
	// Username is the Minecraft profile name.
	Username string `json:"username"`
	// AccountID is the Minecraft profile UUID.
	AccountID string `json:"uuid"`
}

// newAuthSession assembles the session from the final hop outputs. Every field must be non-empty.
func newAuthSession(login *ResourceLoginResult, tokens *ProviderTokenBundle, profile *Profile) (*AuthSession, error) {
	if login == nil || tokens == nil || profile == nil {
		return nil, newChainError(ErrIncompleteData, HopProfile, nil)
	}
	session := &AuthSession{
		AccessToken:  login.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Username:     profile.Username,
		AccountID:    profile.AccountID,
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate returns an IncompleteData error naming the first empty field.
func (s *AuthSession) Validate() error {
	if s == nil {
		return newChainError(ErrIncompleteData, "", nil)
	}
	for _, f := range []struct{ name, value string }{
		{"access_token", s.AccessToken},
		{"refresh_token", s.RefreshToken},
		{"username", s.Username},
		{"uuid", s.AccountID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return incompleteData("", f.name)
		}
	}
	return nil
}

// String keeps tokens out of formatted output.
func (s AuthSession) String() string {
	return fmt.Sprintf("AuthSession{username=%s uuid=%s access_token=%s refresh_token=%s}",
		s.Username, s.AccountID, util.RedactSecret(s.AccessToken), util.RedactSecret(s.RefreshToken))
}

// State is a step of the login state machine.
type State int

const (
	StateIdle State = iota
	StateGeneratingPKCE
	StateAwaitingRedirect
	StateExchangingHop1
	StateExchangingHop2
	StateExchangingHop3
	StateExchangingHop4
	StateFetchingProfile
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateGeneratingPKCE:   "generating_pkce",
	StateAwaitingRedirect: "awaiting_redirect",
	StateExchangingHop1:   "exchanging_hop1",
	StateExchangingHop2:   "exchanging_hop2",
	StateExchangingHop3:   "exchanging_hop3",
	StateExchangingHop4:   "exchanging_hop4",
	StateFetchingProfile:  "fetching_profile",
	StateSucceeded:        "succeeded",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Hop names one request/response exchange of the chain.
type Hop string

const (
	HopAuthorization  Hop = "authorization"
	HopMicrosoftToken Hop = "microsoft_token"
	HopXboxLive       Hop = "xbox_live"
	HopXSTS           Hop = "xsts"
	HopMinecraftLogin Hop = "minecraft_login"
	HopProfile        Hop = "profile"
)
