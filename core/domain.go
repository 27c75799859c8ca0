package core

import "strings"

// AuthMethod records which acquisition path produced a session.
type AuthMethod string

const (
	MethodExisting AuthMethod = "existing"
	MethodRefresh  AuthMethod = "refresh"
	MethodAccess   AuthMethod = "access"
	MethodFull     AuthMethod = "full"
)

// CredentialSet is the registered application identity plus the end-user
// identity. The four fields are only useful together; partial sets are
// treated as absent.
type CredentialSet struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func (c CredentialSet) Complete() bool {
	return strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.Password) != ""
}

// TokenBundle is a caller-supplied snapshot of previously obtained
// credentials. Any subset may be present; the zero value means "nothing".
type TokenBundle struct {
	RestURL      string
	RestToken    string
	RefreshToken string
	AccessToken  string
}

func (t TokenBundle) IsZero() bool {
	return strings.TrimSpace(t.RestURL) == "" &&
		strings.TrimSpace(t.RestToken) == "" &&
		strings.TrimSpace(t.RefreshToken) == "" &&
		strings.TrimSpace(t.AccessToken) == ""
}

// HasSession reports whether the bundle carries both halves of an existing
// REST session.
func (t TokenBundle) HasSession() bool {
	return strings.TrimSpace(t.RestURL) != "" && strings.TrimSpace(t.RestToken) != ""
}

// SessionResult is the single output of an acquisition call. RestURL and
// RestToken always come from (or were validated against) the downstream
// service before the result is built.
type SessionResult struct {
	RestURL      string
	RestToken    string
	RefreshToken string
	AccessToken  string
	MinRemaining *int
	Method       AuthMethod
}

// RetryAttempt describes one retry of a transport call. Status is zero when
// the failure was not a well-formed HTTP response.
type RetryAttempt struct {
	Attempt int
	Status  int
	Err     error
}

// RetryObserver is invoked between retry attempts. Failures raised by the
// observer are swallowed and never interrupt the retry loop.
type RetryObserver func(RetryAttempt)
