package lookup

import "fmt"

// ErrorKind classifies lookup failures.
type ErrorKind int

const (
	// KindInvalidFormat means the number failed the external-format gate;
	// no network call was made.
	KindInvalidFormat ErrorKind = iota
	// KindNotFound means the upstream API has no record of the number.
	KindNotFound
	// KindAuthFailed means the upstream rejected our credentials.
	KindAuthFailed
	// KindRateLimited means the upstream throttled us.
	KindRateLimited
	// KindUpstream covers any other non-2xx upstream status.
	KindUpstream
	// KindTransport covers network-level failures before a status was read.
	KindTransport
)

// Error is a typed lookup failure. The message never contains an
// unmasked phone number.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status for KindUpstream, 0 otherwise
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errInvalidFormat(masked string) *Error {
	return &Error{Kind: KindInvalidFormat, Message: fmt.Sprintf("invalid phone number format: %s", masked)}
}

func errNotFound(masked string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("phone number not found: %s", masked)}
}

func errAuthFailed() *Error {
	return &Error{Kind: KindAuthFailed, Message: "upstream authentication failed"}
}

func errRateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "upstream rate limit exceeded, try again later"}
}

func errUpstream(status int) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: fmt.Sprintf("upstream lookup failed with status %d", status)}
}

func errTransport(err error) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("error contacting upstream: %v", err)}
}
