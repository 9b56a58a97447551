// Package imagekey validates the short screenshot filenames the proxy serves.
package imagekey

import (
	"errors"
	"strings"
)

// Length is the exact byte length of a key, extension included.
const Length = 8

// ErrInvalidKey is returned for keys that fail the shape check.
var ErrInvalidKey = errors.New("not a valid image")

var extensions = []string{".png", ".jpg"}

// Key is a validated image key such as "a1B2.png".
type Key string

// Parse checks that raw is exactly Length bytes long and that its last four
// bytes lower-case to ".png" or ".jpg". Nothing else about the key is checked,
// so it is passed to the remote verbatim.
func Parse(raw string) (Key, error) {
	if len(raw) != Length {
		return "", ErrInvalidKey
	}
	ext := strings.ToLower(raw[len(raw)-4:])
	for _, e := range extensions {
		if ext == e {
			return Key(raw), nil
		}
	}
	return "", ErrInvalidKey
}

// String returns the key as given by the client.
func (k Key) String() string { return string(k) }

// RemoteURL concatenates base and the key without escaping.
func (k Key) RemoteURL(base string) string {
	return base + string(k)
}
