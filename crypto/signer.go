package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	"github.com/zjkmxy/go-ndn/pkg/utils"
)

// eccSigner signs packets with an ECDSA key. The signature value is
// ASN.1/DER encoded. KeyName becomes the packet's key locator.
type eccSigner struct {
	timer          ndn.Timer
	keyLocatorName enc.Name
	key            *ecdsa.PrivateKey
	keyLen         uint
	forCert        bool
	certExpireTime time.Duration
}

func (signer *eccSigner) SigInfo() (*ndn.SigConfig, error) {
	sigConfig := &ndn.SigConfig{
		Type:    ndn.SignatureSha256WithEcdsa,
		KeyName: signer.keyLocatorName,
	}
	if signer.forCert {
		sigConfig.NotBefore = utils.IdPtr(signer.timer.Now())
		sigConfig.NotAfter = utils.IdPtr(signer.timer.Now().Add(signer.certExpireTime))
	}
	return sigConfig, nil
}

func (signer *eccSigner) EstimateSize() uint {
	return signer.keyLen
}

func (signer *eccSigner) ComputeSigValue(covered enc.Wire) ([]byte, error) {
	digest, digestError := Sha256(covered)
	if digestError != nil {
		return nil, digestError
	}
	return ecdsa.SignASN1(rand.Reader, signer.key, digest)
}

// NewEccSigner creates a Data signer using an ECDSA key. When forCert is
// set, signed packets carry a validity window of expireTime from signing.
func NewEccSigner(forCert bool, expireTime time.Duration, key *ecdsa.PrivateKey,
	keyLocatorName enc.Name, timer ndn.Timer) ndn.Signer {
	keyLen := uint(key.Curve.Params().BitSize*2+7) / 8
	keyLen += keyLen%2 + 8
	return &eccSigner{
		timer:          timer,
		keyLocatorName: keyLocatorName,
		key:            key,
		keyLen:         keyLen,
		forCert:        forCert,
		certExpireTime: expireTime,
	}
}
