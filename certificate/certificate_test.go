package certificate_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	basic_engine "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	sec "github.com/zjkmxy/go-ndn/pkg/security"
	"github.com/zjkmxy/go-ndn/pkg/utils"

	"go-ndnfetch/certificate"
	"go-ndnfetch/crypto"
	"go-ndnfetch/keychain"
)

func mustName(t *testing.T, s string) enc.Name {
	name, err := enc.NameFromStr(s)
	require.NoError(t, err)
	return name
}

// makeCertLike builds a Data packet in certificate shape with the given
// name, content type, and content, signed with a validity window.
func makeCertLike(t *testing.T, name enc.Name, contentType ndn.ContentType, content []byte) []byte {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer := crypto.NewEccSigner(true, time.Hour, key,
		mustName(t, "/issuer/KEY/1"), basic_engine.NewTimer())

	wire, _, makeDataErr := spec.Spec{}.MakeData(
		name,
		&ndn.DataConfig{ContentType: utils.IdPtr(contentType)},
		enc.Wire{content},
		signer)
	require.NoError(t, makeDataErr)
	return wire.Join()
}

func TestDecodeSelfSignedCertificate(t *testing.T) {
	timer := basic_engine.NewTimer()
	identity, err := keychain.New(mustName(t, "/example/testApp"), time.Hour, timer)
	require.NoError(t, err)

	cert, decodeErr := certificate.Decode(identity.CertWire.Join())
	require.NoError(t, decodeErr)

	require.True(t, cert.Name.Equal(identity.CertName))
	require.True(t, cert.Subject.Equal(mustName(t, "/example/testApp")))
	require.NotNil(t, cert.IssuerId)
	require.Equal(t, []byte("self"), cert.IssuerId.Val)
	require.True(t, cert.ValidAt(timer.Now()))
	require.False(t, cert.ValidAt(timer.Now().Add(2*time.Hour)))

	publicKey, keyErr := cert.PublicKey()
	require.NoError(t, keyErr)
	require.True(t, identity.PublicKey().Equal(publicKey))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := certificate.Decode([]byte("definitely not a packet"))
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)

	_, err = certificate.Decode(nil)
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)
}

func TestDecodeNameWithoutKeyMarker(t *testing.T) {
	raw := makeCertLike(t, mustName(t, "/example/testApp/no/marker"), ndn.ContentTypeKey, []byte("bits"))
	_, err := certificate.Decode(raw)
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)

	// A KEY marker with nothing after it has no key id.
	raw = makeCertLike(t, mustName(t, "/example/testApp/KEY"), ndn.ContentTypeKey, []byte("bits"))
	_, err = certificate.Decode(raw)
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)
}

func TestDecodeWrongContentType(t *testing.T) {
	raw := makeCertLike(t, mustName(t, "/example/testApp/KEY/1"), ndn.ContentTypeBlob, []byte("bits"))
	_, err := certificate.Decode(raw)
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)
}

func TestDecodeEmptyContent(t *testing.T) {
	raw := makeCertLike(t, mustName(t, "/example/testApp/KEY/1"), ndn.ContentTypeKey, nil)
	_, err := certificate.Decode(raw)
	require.ErrorIs(t, err, certificate.ErrMalformedCertificate)
}

func TestDecodeMissingValidity(t *testing.T) {
	// A digest signature carries no validity window.
	wire, _, err := spec.Spec{}.MakeData(
		mustName(t, "/example/testApp/KEY/1"),
		&ndn.DataConfig{ContentType: utils.IdPtr(ndn.ContentTypeKey)},
		enc.Wire{[]byte("bits")},
		sec.NewSha256Signer())
	require.NoError(t, err)

	_, decodeErr := certificate.Decode(wire.Join())
	require.ErrorIs(t, decodeErr, certificate.ErrMalformedCertificate)
}

func TestPublicKeyExtractionFailure(t *testing.T) {
	raw := makeCertLike(t, mustName(t, "/example/testApp/KEY/1"), ndn.ContentTypeKey, []byte("not DER key bits"))
	cert, err := certificate.Decode(raw)
	require.NoError(t, err)

	_, keyErr := cert.PublicKey()
	require.ErrorIs(t, keyErr, certificate.ErrKeyExtraction)
}
