package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
)

// Decision is the outcome of a single authenticator.
type Decision int

const (
	// Yes means the request carries valid credentials.
	Yes Decision = iota

	// No means the request carries credentials and they are invalid.
	// The chain stops here.
	No

	// Abstain means the authenticator does not recognise the credential
	// scheme; the chain moves on to the next authenticator.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "abstain"
	}
}

// Result is returned by an Authenticator.
type Result struct {
	Decision Decision
	Identity *Identity // set when Decision == Yes
	Err      error     // set when Decision == No
}

// Identity is the authenticated caller.
type Identity struct {
	Subject  string
	Scopes   []string
	Metadata map[string]string
}

// Anonymous is the identity assigned when authentication is disabled.
const Anonymous = "anonymous"

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	return id != nil && slices.Contains(id.Scopes, scope)
}

// Authenticator inspects a request and decides whether it is authenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors returned by authenticators and the rate limiter.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain tries authenticators in order. The first non-Abstain result wins.
// When every authenticator abstains, AllowAnonymous decides between an
// anonymous identity and rejection.
type Chain struct {
	Authenticators []Authenticator
	AllowAnonymous bool
}

// NewChain creates a Chain that rejects requests no authenticator accepts.
func NewChain(authenticators ...Authenticator) *Chain {
	return &Chain{Authenticators: authenticators}
}

// Authenticate implements Authenticator.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.AllowAnonymous {
		return Result{Decision: Yes, Identity: &Identity{Subject: Anonymous}}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}
