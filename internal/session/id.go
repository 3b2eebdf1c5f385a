package session

import (
	"crypto/rand"
	"crypto/subtle"
)

// Alphabet is the 32-symbol set used for session ids and secrets. It
// excludes 0, O, 1 and I so codes survive being read off a phone screen.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	IDLength     = 4
	SecretLength = 16
)

// randomString draws n bytes from the crypto RNG and maps each byte modulo
// 32 into the alphabet. 256 is a multiple of 32, so the mapping is uniform.
func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// NewID returns a 4-character public session identifier. Uniqueness against
// the live store is the caller's job (the store retries on collision).
func NewID() (string, error) {
	return randomString(IDLength)
}

// NewSecret returns a 16-character session secret (~2^80 values).
func NewSecret() (string, error) {
	return randomString(SecretLength)
}

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
