// Package auth authenticates HTTP API callers.
//
// Authenticators vote Yes, No or Abstain on each request and are combined
// in a [Chain]. [Middleware] runs the chain, applies an optional per-subject
// [RateLimiter], and stores the resulting [Identity] in the request context.
// Implementations live in the noop, apikey and jwt subpackages.
package auth
