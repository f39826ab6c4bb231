package cachekey

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxKeyLength is the longest key accepted by Validate.
const MaxKeyLength = 250

// minTruncateLength keeps room for at least a few prefix bytes before the
// hash suffix.
const minTruncateLength = FastHashLength + 9

var (
	// ErrEmptyKey is returned for the empty key.
	ErrEmptyKey = errors.New("cachekey: empty key")
	// ErrControlChar is returned for keys containing newline, carriage return or NUL.
	ErrControlChar = errors.New("cachekey: key contains control character")
	// ErrKeyTooLong is returned for keys longer than MaxKeyLength.
	ErrKeyTooLong = errors.New("cachekey: key too long")
)

// Validate checks that key is non-empty, free of control characters that
// break line-oriented stores, and at most MaxKeyLength bytes.
func Validate(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if i := strings.IndexAny(key, "\n\r\x00"); i >= 0 {
		return fmt.Errorf("%w at byte %d", ErrControlChar, i)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d > %d", ErrKeyTooLong, len(key), MaxKeyLength)
	}
	return nil
}

// Truncate shortens key to at most max bytes. The result keeps a prefix of
// the original followed by "#" and the FastHash of the full key, so two keys
// that differ only beyond the cut still truncate to different values.
//
// Keys already within max are returned unchanged. A max below the minimum
// useful length is raised to it.
func Truncate(key string, max int) string {
	if len(key) <= max {
		return key
	}
	if max < minTruncateLength {
		max = minTruncateLength
		if len(key) <= max {
			return key
		}
	}
	suffix := "#" + FastHash(key)
	cut := max - len(suffix)
	// Never split a multi-byte rune.
	for cut > 0 && !utf8.RuneStart(key[cut]) {
		cut--
	}
	return key[:cut] + suffix
}

// Bound returns key unchanged when it fits MaxKeyLength, otherwise its
// truncated form.
func Bound(key string) string {
	return Truncate(key, MaxKeyLength)
}
