package inventory

import "errors"

var (
	// ErrInvalidArgument marks caller bugs: negative quantities, non-positive
	// horizons, unknown method names.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientData marks data-sparsity conditions. Core components
	// report these as typed "not applicable" results; the sentinel exists for
	// callers that need to surface them as errors.
	ErrInsufficientData = errors.New("insufficient data")
)

// IsInvalidArgument reports whether err wraps ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
