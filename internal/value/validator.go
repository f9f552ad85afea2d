package value

import (
	"unicode/utf8"

	"github.com/kvadminer/kvadminer/internal/kverr"
)

const (
	MaxKeyBytes   = 4096    // longest key accepted from the UI
	MaxValueBytes = 1 << 20 // largest canonical value accepted on write
)

// ValidateKey checks that a key from a request is usable.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return kverr.Invalid("value: validate", "key is empty")
	}
	if len(key) > MaxKeyBytes {
		return kverr.Invalid("value: validate", "key exceeds %d byte limit", MaxKeyBytes)
	}
	if !utf8.ValidString(key) {
		return kverr.Invalid("value: validate", "key contains invalid UTF-8")
	}
	return nil
}

// ValidateValue checks the size of a canonical value before it is written.
func ValidateValue(canonical string) error {
	if len(canonical) > MaxValueBytes {
		return kverr.Invalid("value: validate", "value exceeds %d byte limit", MaxValueBytes)
	}
	return nil
}
