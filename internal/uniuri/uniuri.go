package uniuri

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// TokenLen is the length of a session token, ~380 bits of entropy.
	TokenLen = 64

	// byteRange is the number of distinct byte values.
	byteRange = 256

	// batch is how many random bytes are read at once.
	batch = 128
)

// StdChars is the alphabet of generated strings.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// ErrCharset is returned for alphabets shorter than 2 or longer than 256 characters.
var ErrCharset = errors.New("uniuri: charset must hold between 2 and 256 characters")

// NewToken returns a new session token of TokenLen standard characters.
func NewToken() (string, error) {
	return NewLenChars(TokenLen, StdChars)
}

// NewLen returns a random string of length standard characters.
func NewLen(length int) (string, error) {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters drawn from chars.
func NewLenChars(length int, chars []byte) (string, error) {
	return newFrom(rand.Reader, length, chars)
}

func newFrom(r io.Reader, length int, chars []byte) (string, error) {
	if length <= 0 {
		return "", nil
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		return "", ErrCharset
	}

	// bytes above limit would favour the first characters of chars
	limit := byteRange - (byteRange % clen)

	out := make([]byte, 0, length)
	buf := make([]byte, batch)

	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("uniuri: reading random bytes: %w", err)
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%clen])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
