package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/laph/pkg/api"
)

// statusErrors maps backend status codes to an error constructor and the
// message used when the body carries none. Anything not listed is a
// server error, which the retry middleware treats as transient.
var statusErrors = map[int]struct {
	build    func(string) *api.APIError
	fallback string
}{
	http.StatusBadRequest: {
		func(m string) *api.APIError { return api.NewInvalidRequestError("", m) },
		"invalid request to backend",
	},
	http.StatusUnauthorized:    {api.NewUnauthorizedError, "backend authentication failed"},
	http.StatusForbidden:       {api.NewUnauthorizedError, "backend authentication failed"},
	http.StatusNotFound:        {api.NewNotFoundError, "backend resource not found"},
	http.StatusTooManyRequests: {api.NewTooManyRequestsError, "backend rate limit exceeded"},
}

// MapHTTPError converts a non-2xx response into an APIError, preferring
// the backend's own message when the body is a Chat Completions error.
func MapHTTPError(resp *http.Response) *api.APIError {
	msg := errorMessage(resp.Body)
	if e, ok := statusErrors[resp.StatusCode]; ok {
		if msg == "" {
			msg = e.fallback
		}
		return e.build(msg)
	}
	if msg == "" {
		msg = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
	}
	return api.NewServerError(msg)
}

// MapNetworkError wraps a transport failure (refused connection, DNS,
// timeout) as a server error so the generator retries it.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError("backend connection error: " + err.Error())
}

// errorMessage reads at most 4 KiB of body and returns error.message, or ""
// when the body is not a Chat Completions error.
func errorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var resp ChatErrorResponse
	if json.Unmarshal(data, &resp) != nil {
		return ""
	}
	return resp.Error.Message
}
