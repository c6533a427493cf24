// Package apikey authenticates bearer tokens against a static key list.
// Only SHA-256 digests of the keys are kept in memory.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/laph/pkg/auth"
)

// Key pairs a plaintext key with the identity it grants.
type Key struct {
	Key     string
	Subject string
	Scopes  []string
}

type entry struct {
	hash     [sha256.Size]byte
	identity auth.Identity
}

// Authenticator validates "Authorization: Bearer <key>" headers.
type Authenticator struct {
	entries []entry
}

// New hashes keys and returns an Authenticator. Entries with an empty key
// are skipped; an empty subject defaults to "apikey-<index>".
func New(keys []Key) *Authenticator {
	a := &Authenticator{}
	for i, k := range keys {
		if k.Key == "" {
			continue
		}
		subject := k.Subject
		if subject == "" {
			subject = "apikey-" + strconv.Itoa(i)
		}
		a.entries = append(a.entries, entry{
			hash:     sha256.Sum256([]byte(k.Key)),
			identity: auth.Identity{Subject: subject, Scopes: k.Scopes},
		})
	}
	return a
}

// Authenticate implements auth.Authenticator. Requests without a bearer
// token abstain so that other authenticators in a chain may handle them.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := bearer(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	sum := sha256.Sum256([]byte(token))
	for _, e := range a.entries {
		if subtle.ConstantTimeCompare(sum[:], e.hash[:]) == 1 {
			id := e.identity
			return auth.Result{Decision: auth.Yes, Identity: &id}
		}
	}
	return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(token), true
}
