// Package id provides UUIDv7 generation for record and request identifiers.
// UUIDv7 is time-ordered, allowing natural sorting by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
// UUIDv7 embeds a Unix timestamp in the first 48 bits, enabling:
// - Natural chronological ordering
// - No need for a separate created_at index for sorting
// - Better B-tree locality in PostgreSQL
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if V7 fails (should never happen)
		return uuid.New()
	}
	return id
}

// NewString generates a new UUIDv7 rendered as a string. Request and trace
// identifiers use this form.
func NewString() string {
	return New().String()
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID, panicking on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks whether the ID is the zero value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
