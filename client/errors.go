package client

// FailureKind tags the branch a failed login attempt took.
type FailureKind int

const (
	// ServerRejected means a response arrived carrying an error body.
	ServerRejected FailureKind = iota + 1
	// Unreachable means the request went out but no response came back.
	Unreachable
	// ClientFault means the request could not be built or sent at all.
	ClientFault
	// MalformedSuccess means a 2xx response was missing the token or the user.
	MalformedSuccess
)

// User-visible fallback messages per failure branch.
const (
	DefaultFailureMessage = "Login failed. Please try again."
	UnreachableMessage    = "Unable to reach the server. Please check your connection."
	BadResponseMessage    = "Received an invalid response from the server."
)

// LoginError carries the classified failure and the message shown to the user.
type LoginError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// firstNonEmpty returns the first non-empty string, mirroring the
// detail -> message -> default fallback order of the error payload.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
