package domain

import "errors"

// Error kinds. Everything an adapter can fail with wraps one of these so
// callers map failures to user-facing messages without inspecting upstream
// status codes.
var (
	// ErrLinkNotFound means the input contained no URL for the platform.
	// It is a "did not match" signal, not a failure.
	ErrLinkNotFound = errors.New("no supported link found")

	// ErrResolution means a URL matched but no resource identifier could
	// be derived from it.
	ErrResolution = errors.New("link could not be resolved")

	// ErrCredentialsMissing means required secrets are not configured.
	// Configuration-level, never retryable.
	ErrCredentialsMissing = errors.New("credentials not configured")

	// ErrAuthenticationFailed means upstream rejected our credentials even
	// after one forced token refresh.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrTokenAcquisition means the token exchange itself failed.
	ErrTokenAcquisition = errors.New("token acquisition failed")

	// ErrUpstreamTransient covers 5xx and timeouts; a retry may help.
	ErrUpstreamTransient = errors.New("upstream temporarily unavailable")

	// ErrUpstreamRejected covers non-auth 4xx and in-band upstream errors;
	// the link should be checked.
	ErrUpstreamRejected = errors.New("upstream rejected the request")

	// ErrUpstreamMalformed means the response body was not JSON or lacked
	// expected fields.
	ErrUpstreamMalformed = errors.New("unexpected upstream response")

	// ErrNoMedia means the payload parsed fine but yielded zero usable
	// photo or video candidates.
	ErrNoMedia = errors.New("no downloadable media in post")

	// ErrNotFound means the post or page does not exist upstream.
	ErrNotFound = errors.New("post not found")

	// ErrAccessDenied means the post is private or requires login.
	ErrAccessDenied = errors.New("post is private or requires login")

	// ErrMessageNotFound is messaging-platform specific: the message id
	// does not exist in the resolved chat.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEntityNotResolvable is messaging-platform specific: the username
	// or channel id could not be resolved to a chat.
	ErrEntityNotResolvable = errors.New("chat could not be resolved")
)

// ResolveError wraps an error with platform and operation context.
type ResolveError struct {
	Platform Platform
	Op       string
	Err      error
}

func (e *ResolveError) Error() string {
	if e.Platform != "" {
		return string(e.Platform) + ": " + e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NewResolveError creates a new ResolveError.
func NewResolveError(platform Platform, op string, err error) *ResolveError {
	return &ResolveError{Platform: platform, Op: op, Err: err}
}
