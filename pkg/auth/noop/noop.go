// Package noop provides an authenticator that accepts every request.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/laph/pkg/auth"
)

// Authenticator assigns the anonymous identity to every request.
type Authenticator struct{}

// Authenticate implements auth.Authenticator.
func (Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.Result {
	return auth.Result{
		Decision: auth.Yes,
		Identity: &auth.Identity{Subject: auth.Anonymous},
	}
}
