package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure by the operation that produced it.
// This is a closed set: drivers map every native error into one of these
// and callers decide recovery by kind alone.
type Kind string

const (
	KindConnect Kind = "connect"
	KindStage   Kind = "stage"
	KindDiff    Kind = "diff"
	KindCommit  Kind = "commit"
	KindDiscard Kind = "discard"
	KindFacts   Kind = "facts"
	KindClose   Kind = "close"
	KindUnknown Kind = "unknown"
)

// ErrAutoRollback signals that the device itself rolled back the candidate
// after a failed commit. Drivers wrap it into a commit Error only when the
// vendor layer guarantees the rollback actually happened.
var ErrAutoRollback = errors.New("device rolled back candidate configuration")

// Error is a transport failure tagged with its operation kind.
type Error struct {
	Kind   Kind
	Device string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed on %s: %v", e.Kind, e.Device, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a transport failure of the given kind.
func NewError(kind Kind, device string, err error) *Error {
	return &Error{Kind: kind, Device: device, Err: err}
}

// KindOf extracts the failure kind from an error chain, or KindUnknown for
// errors that did not originate from a driver's mapped taxonomy.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// IsAutoRollback reports whether the driver explicitly signaled a
// successful device-side rollback.
func IsAutoRollback(err error) bool {
	return errors.Is(err, ErrAutoRollback)
}
