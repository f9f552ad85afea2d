package session

import "github.com/google/uuid"

// NewID returns a fresh random session identifier (UUID v4).
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether id looks like an identifier produced by NewID.
// Client-supplied identifiers that fail this check are replaced.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
