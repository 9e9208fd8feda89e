// Package fingerprint computes the 128-bit cache key identifying a
// request: its path and query always contribute, and its body-sensitive
// component is either a client-supplied hash header (when present) or the
// request body bytes themselves.
package fingerprint

import "github.com/zeebo/blake3"

// Fingerprint is a 128-bit request identity used as a cache key.
type Fingerprint [16]byte

// HashHeaderName is the request header clients may set to pre-declare a
// body hash, letting the proxy key the cache on that value instead of the
// body bytes. The proxy still drains the body, since a miss forwards it.
const HashHeaderName = "x-hash"

// Compute derives a Fingerprint from path, query and either hashHeader
// (when non-empty, taking priority) or body. path and query always
// contribute; exactly one of hashHeader or body contributes the
// body-sensitive component.
func Compute(path, query string, hashHeader []byte, body []byte) Fingerprint {
	h := blake3.New()
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(query))
	_, _ = h.Write([]byte{0})

	if len(hashHeader) > 0 {
		_, _ = h.Write(hashHeader)
	} else {
		_, _ = h.Write(body)
	}

	sum := h.Sum(nil)
	var fp Fingerprint
	copy(fp[:], sum[:16])
	return fp
}
