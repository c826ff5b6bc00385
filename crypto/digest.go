// Package crypto implements the digest and signature primitives used to
// sign and validate packets: streaming SHA-256 over the signature-covered
// byte ranges and ECDSA with ASN.1/DER encoded signature values.
package crypto

import (
	"crypto/sha256"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// Sha256 computes the SHA-256 digest over the covered byte ranges in order.
// The ranges are streamed into the hash, never concatenated.
func Sha256(covered enc.Wire) ([]byte, error) {
	h := sha256.New()
	for _, buf := range covered {
		_, err := h.Write(buf)
		if err != nil {
			return nil, enc.ErrUnexpected{Err: err}
		}
	}
	return h.Sum(nil), nil
}
