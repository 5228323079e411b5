// Package subjecthash derives the opaque subject identifier used to key every
// record in the compliance core. The digest is a keyed BLAKE2b-256 of the
// normalized raw identifier; without the key the mapping cannot be reversed
// or brute-forced from a list of known phone numbers or emails.
package subjecthash

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"

	"voxguard/pkg/domain"
)

// MinKeyLen is the shortest accepted hashing key.
const MinKeyLen = 32

var ErrKeyTooShort = errors.New("subject hash key must be at least 32 bytes")

// Hasher turns raw identifiers into SubjectHash values.
type Hasher struct {
	key []byte
}

// New returns a Hasher using key. BLAKE2b accepts keys up to 64 bytes.
func New(key []byte) (*Hasher, error) {
	if len(key) < MinKeyLen {
		return nil, ErrKeyTooShort
	}
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Hasher{key: k}, nil
}

// Hash normalizes raw (trim, lower-case) and returns its keyed digest.
func (h *Hasher) Hash(raw string) domain.SubjectHash {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// New validated the key length, so this is unreachable.
		panic(err)
	}
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(raw))))
	return domain.SubjectHash(hex.EncodeToString(mac.Sum(nil)))
}
