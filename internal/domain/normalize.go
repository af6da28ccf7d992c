package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeName trims, collapses inner whitespace and case-folds an item name
// or category so lookups and uniqueness are case-insensitive.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ItemKey returns the filesystem-safe key used to name per-item artifacts.
// Spaces become '_'; every byte outside [a-z0-9-] is written as %XX, so two
// distinct normalized names never share a key and ItemFromKey reverses it.
func ItemKey(itemName string) string {
	name := NormalizeName(itemName)
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// ItemFromKey decodes a key produced by ItemKey back into the item name.
func ItemFromKey(key string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '_':
			b.WriteByte(' ')
		case '%':
			if i+2 >= len(key) {
				return "", fmt.Errorf("%w: truncated escape in item key %q", ErrInvalidInput, key)
			}
			v, err := strconv.ParseUint(key[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad escape in item key %q", ErrInvalidInput, key)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
