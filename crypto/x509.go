package crypto

import (
	"crypto/ecdsa"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrNotEcdsaKey is returned when key material parses but is not an ECDSA
// public key.
var ErrNotEcdsaKey = errors.New("key material is not an ECDSA public key")

// EncodePublicKey encodes an ECDSA public key in PKIX/DER form, the layout
// carried in certificate content.
func EncodePublicKey(key *ecdsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(key)
}

// ParsePublicKey parses PKIX/DER key material into an ECDSA public key.
func ParsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	genericPublicKey, parsePublicKeyError := x509.ParsePKIXPublicKey(der)
	if parsePublicKeyError != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", parsePublicKeyError)
	}
	ecdsaPublicKey, ok := genericPublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrNotEcdsaKey
	}
	return ecdsaPublicKey, nil
}
