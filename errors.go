package calconnect

import "fmt"

// AuthError reports that a token endpoint rejected a refresh token or an
// authorization code. It is fatal for the credential: retrying the same
// grant cannot succeed, the account has to be re-authorized upstream.
type AuthError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: token endpoint returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ProtocolError is any non-2xx response from a listing or detail call that
// the adapter does not handle internally. It carries the remote status and
// body so the caller can log and decide on its own retry policy.
type ProtocolError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}
