// Package certificate decodes NDN certificates. A certificate is a signed
// Data packet named
//
//	/<subject>/KEY/<key-id>[/<issuer-id>[/<version>]]
//
// whose content is the subject's public key in PKIX/DER form and whose
// signature carries the validity window. Decoding is pure and performs no
// network activity.
package certificate

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"go-ndnfetch/crypto"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
)

var (
	// ErrMalformedCertificate is returned when the bytes do not decode to
	// the expected certificate layout.
	ErrMalformedCertificate = errors.New("malformed certificate")
	// ErrKeyExtraction is returned when the certificate decodes but its key
	// material cannot be parsed into a usable public key.
	ErrKeyExtraction = errors.New("failed to extract public key from certificate")
)

var keyComponent = enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("KEY")}

// Certificate is one decoded certificate packet.
type Certificate struct {
	// Name is the full certificate name, including issuer and version
	// components when present.
	Name enc.Name
	// Subject is the name prefix before the KEY marker.
	Subject enc.Name
	// KeyId identifies the subject's key.
	KeyId enc.Component
	// IssuerId identifies who issued the certificate, when named.
	IssuerId *enc.Component
	// PublicKeyBits is the PKIX/DER encoded public key payload.
	PublicKeyBits []byte
	// NotBefore and NotAfter bound the certificate's validity.
	NotBefore time.Time
	NotAfter  time.Time

	// Data is the underlying packet, kept for signature inspection.
	Data ndn.Data
	// SigCovered is the byte range the certificate's own signature covers.
	SigCovered enc.Wire
}

// Decode parses a raw certificate packet. The issuer and version name
// components are optional; everything else in the layout is required.
func Decode(raw []byte) (*Certificate, error) {
	data, sigCovered, readDataError := spec.Spec{}.ReadData(enc.NewBufferReader(raw))
	if readDataError != nil {
		return nil, ErrMalformedCertificate
	}
	return DecodeData(data, sigCovered)
}

// DecodeData builds a certificate from an already parsed Data packet.
func DecodeData(data ndn.Data, sigCovered enc.Wire) (*Certificate, error) {
	name := data.Name()
	keyIdx := -1
	for i, component := range name {
		if component.Typ == keyComponent.Typ && bytes.Equal(component.Val, keyComponent.Val) {
			keyIdx = i
			break
		}
	}
	// The KEY marker needs a subject before it and a key id after it.
	if keyIdx < 1 || keyIdx+1 >= len(name) {
		return nil, ErrMalformedCertificate
	}

	if data.ContentType() == nil || *data.ContentType() != ndn.ContentTypeKey {
		return nil, ErrMalformedCertificate
	}
	content := data.Content()
	if content == nil {
		return nil, ErrMalformedCertificate
	}
	publicKeyBits := content.Join()
	if len(publicKeyBits) == 0 {
		return nil, ErrMalformedCertificate
	}

	if data.Signature() == nil {
		return nil, ErrMalformedCertificate
	}
	notBefore, notAfter := data.Signature().Validity()
	if notBefore == nil || notAfter == nil || notBefore.After(*notAfter) {
		return nil, ErrMalformedCertificate
	}

	cert := &Certificate{
		Name:          name,
		Subject:       name[:keyIdx],
		KeyId:         name[keyIdx+1],
		PublicKeyBits: publicKeyBits,
		NotBefore:     *notBefore,
		NotAfter:      *notAfter,
		Data:          data,
		SigCovered:    sigCovered,
	}
	if keyIdx+2 < len(name) {
		cert.IssuerId = &name[keyIdx+2]
	}
	return cert, nil
}

// PublicKey parses the certificate's key material into an ECDSA public key.
func (cert *Certificate) PublicKey() (*ecdsa.PublicKey, error) {
	publicKey, parsePublicKeyError := crypto.ParsePublicKey(cert.PublicKeyBits)
	if parsePublicKeyError != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyExtraction, parsePublicKeyError)
	}
	return publicKey, nil
}

// ValidAt reports whether t falls inside the certificate's validity window.
func (cert *Certificate) ValidAt(t time.Time) bool {
	return !t.Before(cert.NotBefore) && !t.After(cert.NotAfter)
}
