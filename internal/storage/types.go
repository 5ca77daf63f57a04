package storage

import "errors"

// Sentinel errors returned by storage implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed parameters (empty ids,
	// wrong embedding dimension, non-positive limits).
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultTopK is the retrieval depth used when a request does not specify one.
const DefaultTopK = 5

// MaxTopK bounds the retrieval depth accepted from callers.
const MaxTopK = 50

// ClampTopK normalizes a requested retrieval depth into [1, MaxTopK],
// substituting DefaultTopK for non-positive values.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
