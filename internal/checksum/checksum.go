package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Digest returns the lowercase hex SHA-256 of data. Upload handlers store
// it on the job row so a re-upload of identical bytes can be refused.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matcher compares payloads against a known digest.
type Matcher struct {
	expected string
}

func NewMatcher(expected string) *Matcher {
	return &Matcher{expected: expected}
}

// Match reports whether data hashes to the expected digest.
func (m *Matcher) Match(data []byte) (bool, error) {
	if m.expected == "" {
		return false, errors.New("expected checksum is not set")
	}
	return Digest(data) == m.expected, nil
}
