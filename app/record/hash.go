package record

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 digest of raw fetched bytes. The
// digest drives change detection and dedup, and doubles as a namespacing
// suffix for sources that have no natural stable identifier.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n characters of Hash, for identifier suffixes.
func ShortHash(data []byte, n int) string {
	h := Hash(data)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
