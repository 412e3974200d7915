package crypto

import (
	"crypto/rand"
	"errors"
	"io"
)

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_")

// GenerateString returns a random URL-safe string of length n.
func GenerateString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	// 64 letters divide 256 evenly, so the modulo carries no bias.
	for i := range buf {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	return string(buf), nil
}
