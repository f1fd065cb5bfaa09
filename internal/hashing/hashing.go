package hashing

import (
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"
)

// New returns the hash used for content identities.
func New() hash.Hash {
	return blake3.New()
}

func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
