// Package jwt authenticates bearer JWTs signed with RSA keys published at
// a JWKS endpoint.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/laph/pkg/auth"
	"github.com/rhuss/laph/pkg/debug"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// JWKSURL serves the signing keys.
	JWKSURL string

	// UserClaim names the subject claim. Default: "sub".
	UserClaim string

	// ScopesClaim names the scopes claim, either a space-separated string
	// or an array. Default: "scope".
	ScopesClaim string

	// CacheTTL is how long fetched keys stay valid. Default: 1h.
	CacheTTL time.Duration

	// HTTPClient fetches the key set. Default: a client with a 10s timeout.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
}

// Authenticator validates JWT bearer tokens.
type Authenticator struct {
	cfg  Config
	keys *keySet
}

// New creates an Authenticator. Keys are fetched lazily on first use.
func New(cfg Config) *Authenticator {
	cfg.applyDefaults()
	return &Authenticator{
		cfg:  cfg,
		keys: newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL),
	}
}

// Authenticate implements auth.Authenticator. Requests without a bearer
// token abstain; a token that fails validation is rejected.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reject(errors.New("empty bearer token"))
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(tok *jwtlib.Token) (any, error) {
		kid, _ := tok.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return a.keys.get(ctx, kid)
	}, a.parserOptions()...)
	if err != nil {
		debug.Log("auth", "jwt rejected", "error", err)
		return reject(fmt.Errorf("invalid JWT: %w", err))
	}

	subject, _ := claims[a.cfg.UserClaim].(string)
	if subject == "" {
		return reject(fmt.Errorf("JWT missing %q claim", a.cfg.UserClaim))
	}

	return auth.Result{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject: subject,
			Scopes:  scopes(claims[a.cfg.ScopesClaim]),
		},
	}
}

func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.cfg.Audience))
	}
	return opts
}

func reject(err error) auth.Result {
	return auth.Result{Decision: auth.No, Err: err}
}

// scopes accepts "a b c" or ["a", "b", "c"].
func scopes(v any) []string {
	switch v := v.(type) {
	case string:
		if f := strings.Fields(v); len(f) > 0 {
			return f
		}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
