package minecraft

import (
	"net/http"
	"strings"
	"time"

	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/util"
	"golang.org/x/oauth2"
)

// Default service endpoints.
const (
	AuthURL             = "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"
	TokenURL            = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	XboxLiveAuthURL     = "https://user.auth.xboxlive.com/user/authenticate"
	XSTSAuthorizeURL    = "https://xsts.auth.xboxlive.com/xsts/authorize"
	LoginWithXboxURL    = "https://api.minecraftservices.com/authentication/login_with_xbox"
	MinecraftProfileURL = "https://api.minecraftservices.com/minecraft/profile"
)

// Endpoints holds the URL of every service the chain talks to.
type Endpoints struct {
	Authorize     string
	Token         string
	XboxLive      string
	XSTS          string
	LoginWithXbox string
	Profile       string
}

// DefaultEndpoints returns the production service URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authorize:     AuthURL,
		Token:         TokenURL,
		XboxLive:      XboxLiveAuthURL,
		XSTS:          XSTSAuthorizeURL,
		LoginWithXbox: LoginWithXboxURL,
		Profile:       MinecraftProfileURL,
	}
}

// endpointsFromConfig applies the configured overrides to the defaults.
func endpointsFromConfig(cfg config.EndpointsConfig) Endpoints {
	e := DefaultEndpoints()
	pick := func(dst *string, override string) {
		if v := strings.TrimSpace(override); v != "" {
			*dst = v
		}
	}
	pick(&e.Authorize, cfg.Authorize)
	pick(&e.Token, cfg.Token)
	pick(&e.XboxLive, cfg.XboxLive)
	pick(&e.XSTS, cfg.XSTS)
	pick(&e.LoginWithXbox, cfg.LoginWithXbox)
	pick(&e.Profile, cfg.MinecraftProfile)
	return e
}

// MinecraftAuth performs the individual hops of the Microsoft to Minecraft login.
// It holds no per-attempt state; an Orchestrator sequences the hops.
type MinecraftAuth struct {
	clientID        string
	redirectURI     string
	scopes          []string
	endpoints       Endpoints
	callbackTimeout time.Duration
	exchanger       *exchanger
}

// NewMinecraftAuth creates the hop client from the application configuration.
//
// Parameters:
//   - cfg: The application configuration containing the client registration, endpoints,
//     timeouts and proxy settings
//
// Returns:
//   - *MinecraftAuth: A new authentication service instance
func NewMinecraftAuth(cfg *config.Config) *MinecraftAuth {
	return NewMinecraftAuthWithClient(cfg, util.NewHTTPClient(&cfg.SDKConfig, cfg.RequestTimeout()+5*time.Second))
}

// NewMinecraftAuthWithClient is NewMinecraftAuth with a caller-supplied HTTP client.
func NewMinecraftAuthWithClient(cfg *config.Config, httpClient *http.Client) *MinecraftAuth {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = config.DefaultScopes
	}
	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = config.DefaultRedirectURI
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &MinecraftAuth{
		clientID:        cfg.ClientID,
		redirectURI:     redirectURI,
		scopes:          append([]string(nil), scopes...),
		endpoints:       endpointsFromConfig(cfg.Endpoints),
		callbackTimeout: cfg.CallbackTimeout(),
		exchanger: &exchanger{
			httpClient: httpClient,
			timeout:    cfg.RequestTimeout(),
			userAgent:  userAgent,
		},
	}
}

// RedirectURI returns the redirect the authorization request is registered with.
func (a *MinecraftAuth) RedirectURI() string {
	return a.redirectURI
}

// oauthConfig describes the Microsoft public client for x/oauth2.
func (a *MinecraftAuth) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    a.clientID,
		RedirectURL: redirectURI,
		Scopes:      a.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.endpoints.Authorize,
			TokenURL:  a.endpoints.Token,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the authorization URL carrying client_id, response_type=code,
// redirect_uri, scope, state and the S256 code challenge.
func (a *MinecraftAuth) AuthCodeURL(state string, pkceCodes *PKCECodes) string {
	return a.authCodeURL(a.redirectURI, state, pkceCodes)
}

func (a *MinecraftAuth) authCodeURL(redirectURI, state string, pkceCodes *PKCECodes) string {
	return a.oauthConfig(redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkceCodes.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}
