package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainCacheKey separates cache key digests from any other SHA-256 use.
// Version suffix enables future algorithm migration.
const DomainCacheKey = "atemporal/cachekey/v1"

// FastHashLength is the length of a FastHash digest in hex characters.
const FastHashLength = 16

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// FastHash collapses s into a stable 64-bit digest rendered as 16 hex
// characters. Collisions are computationally rare but possible; callers that
// need exact identity must keep the full key alongside the digest.
func FastHash(s string) string {
	sum := hashWithDomain(DomainCacheKey, []byte(s))
	return hex.EncodeToString(sum[:FastHashLength/2])
}
