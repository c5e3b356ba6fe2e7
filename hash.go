package transapi

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// CacheKey derives the store key for a lookup: the SHA-256 of the kind, slug,
// version and locale (slug omitted for core), each length-prefixed so that field
// boundaries cannot shift between requests. The result is 64 hex characters.
func CacheKey(req LookupRequest) string {
	req = req.Normalized()

	h := sha256.New()
	for _, field := range []string{string(req.Kind), req.Slug, req.Version, req.Locale} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
