// Package fault classifies the errors returned by the security core so that
// callers can decide presentation without string matching.
package fault

import "errors"

// Kind is the recoverable error category of a failure.
type Kind uint8

const (
	// Unknown covers I/O and other unexpected failures.
	Unknown Kind = iota
	// Validation is bad input shape: short passphrase, empty pool, locked vault.
	Validation
	// Authentication is a wrong password or a GCM tag that does not verify.
	Authentication
	// Format is malformed backup data or undecodable Base32.
	Format
	// RateLimited means the caller must wait before retrying.
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Format:
		return "format"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a sentinel error carrying a Kind. Sentinels compare by identity,
// so wrapping with %w keeps errors.Is working.
type Error struct {
	kind Kind
	msg  string
}

// New returns a sentinel of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the error category.
func (e *Error) Kind() Kind { return e.kind }

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return Unknown
}
