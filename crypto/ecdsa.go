package crypto

import (
	"crypto/ecdsa"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// EcdsaVerify checks an ASN.1/DER encoded ECDSA signature over a digest.
// A mismatched or malformed signature is a normal false, never an error.
func EcdsaVerify(pubKey *ecdsa.PublicKey, digest []byte, sigValue []byte) bool {
	return ecdsa.VerifyASN1(pubKey, digest, sigValue)
}

// EcdsaValidate digests the covered byte ranges and checks sigValue
// against the result.
func EcdsaValidate(sigCovered enc.Wire, sigValue []byte, pubKey *ecdsa.PublicKey) bool {
	digest, digestError := Sha256(sigCovered)
	if digestError != nil {
		return false
	}
	return EcdsaVerify(pubKey, digest, sigValue)
}
