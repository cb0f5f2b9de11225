package common

import "errors"

// ConstError is a error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// The error kinds surfaced by the storage and schema layers. Callers
// classify failures by errors.Is against these sentinels; more specific
// context is added by wrapping.
const (
	// ErrArgument marks an invalid caller-supplied parameter, such as an
	// out-of-range position or a malformed group id. Never retried.
	ErrArgument = ConstError("invalid argument")

	// ErrState marks an operation that is not valid for the current data
	// state, such as querying the blockchain height before the genesis
	// block exists, or using a fork after it was merged.
	ErrState = ConstError("invalid state")

	// ErrFormat marks a decode failure on corrupt or truncated stored
	// bytes. It indicates data corruption or a schema version mismatch
	// and must abort the enclosing operation.
	ErrFormat = ConstError("format error")

	// ErrResource marks a failure of the underlying database or view.
	// The enclosing transaction must be treated as failed and rolled back.
	ErrResource = ConstError("resource error")
)

// IsArgument reports whether err is an ErrArgument failure.
func IsArgument(err error) bool {
	return errors.Is(err, ErrArgument)
}

// IsState reports whether err is an ErrState failure.
func IsState(err error) bool {
	return errors.Is(err, ErrState)
}

// IsFormat reports whether err is an ErrFormat failure.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsResource reports whether err is an ErrResource failure.
func IsResource(err error) bool {
	return errors.Is(err, ErrResource)
}
