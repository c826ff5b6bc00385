// Package keychain manages a signing identity: an ECDSA P-256 key pair
// named under the owner's prefix plus a self-signed certificate packet
// that publishes the public key.
package keychain

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"

	"go-ndnfetch/crypto"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	"github.com/zjkmxy/go-ndn/pkg/utils"
	"go.step.sm/crypto/randutil"
)

const keyIdLength = 8

// Identity is one subject name with its key pair and self-signed
// certificate.
type Identity struct {
	// Subject is the owner's name prefix.
	Subject enc.Name
	// KeyName is /<subject>/KEY/<key-id>. Packets signed by this identity
	// carry it as their key locator.
	KeyName enc.Name
	// CertName is the full name of the self-signed certificate.
	CertName enc.Name
	// CertWire is the encoded certificate packet, served as-is.
	CertWire enc.Wire

	privateKey *ecdsa.PrivateKey
	timer      ndn.Timer
}

// New generates a P-256 identity under subject and self-signs a certificate
// valid for certValidity from now.
func New(subject enc.Name, certValidity time.Duration, timer ndn.Timer) (*Identity, error) {
	privateKey, generateKeyError := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if generateKeyError != nil {
		return nil, generateKeyError
	}

	keyId, _ := randutil.Alphanumeric(keyIdLength)
	keyName := make(enc.Name, 0, len(subject)+2)
	keyName = append(keyName, subject...)
	keyName = append(keyName,
		enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("KEY")},
		enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte(keyId)})
	certName := make(enc.Name, 0, len(keyName)+2)
	certName = append(certName, keyName...)
	certName = append(certName,
		enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("self")},
		enc.NewVersionComponent(uint64(timer.Now().UnixMilli())))

	publicKeyBits, encodePublicKeyError := crypto.EncodePublicKey(&privateKey.PublicKey)
	if encodePublicKeyError != nil {
		return nil, encodePublicKeyError
	}

	certSigner := crypto.NewEccSigner(true, certValidity, privateKey, keyName, timer)
	certWire, _, makeDataError := spec.Spec{}.MakeData(
		certName,
		&ndn.DataConfig{
			ContentType: utils.IdPtr(ndn.ContentTypeKey),
			Freshness:   utils.IdPtr(time.Hour),
		},
		enc.Wire{publicKeyBits},
		certSigner)
	if makeDataError != nil {
		return nil, makeDataError
	}

	return &Identity{
		Subject:    subject,
		KeyName:    keyName,
		CertName:   certName,
		CertWire:   certWire,
		privateKey: privateKey,
		timer:      timer,
	}, nil
}

// Signer returns a Data signer whose key locator is this identity's key
// name.
func (id *Identity) Signer() ndn.Signer {
	return crypto.NewEccSigner(false, 0, id.privateKey, id.KeyName, id.timer)
}

// PublicKey returns the identity's public key.
func (id *Identity) PublicKey() *ecdsa.PublicKey {
	return &id.privateKey.PublicKey
}
