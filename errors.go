package hybridcat

import "errors"

// Sentinel errors for the core's usage-error and no-op outcomes.
// ErrClosed and ErrDimensionMismatch are fatal usage errors; callers
// use errors.Is to distinguish them from embedding failures (the
// provider's error, wrapped with %w) and snapshot failures (wrapped in
// ErrInvalidSnapshot).
var (
	// ErrClosed is returned by Build, Add, Remove, Search, Save, Load,
	// and SaveSQLite after Close.
	ErrClosed = errClosed

	// ErrDimensionMismatch is returned when a vector's length does not
	// match the engine's configured dimension.
	ErrDimensionMismatch = errors.New("hybridcat: dimension mismatch")

	// ErrInvalidSnapshot is returned by Load when the snapshot is
	// malformed: unknown version, a decoded vector length not divisible
	// by 4, or mismatched item/vector counts.
	ErrInvalidSnapshot = errors.New("hybridcat: invalid snapshot")
)
