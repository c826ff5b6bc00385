package produce_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	mgmt "github.com/zjkmxy/go-ndn/pkg/ndn/mgmt_2022"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	sec "github.com/zjkmxy/go-ndn/pkg/security"
	"github.com/zjkmxy/go-ndn/pkg/utils"

	"go-ndnfetch/certificate"
	"go-ndnfetch/crypto"
	"go-ndnfetch/fetch"
	"go-ndnfetch/fetch/dummy"
	"go-ndnfetch/keychain"
	"go-ndnfetch/produce"
)

// loopback wires a producer to a dummy face. Forwarder management commands
// are auto-acknowledged; handler replies land on the replies channel.
func loopback(t *testing.T) (*dummy.Face, *fetch.Client, *keychain.Identity, chan enc.Buffer) {
	face := dummy.NewFace()
	timer := dummy.NewTimer()
	client := fetch.NewClient(face, timer, sec.NewSha256IntSigner(timer))
	require.NoError(t, client.Start())

	prefix, err := enc.NameFromStr("/example/testApp")
	require.NoError(t, err)
	identity, identityErr := keychain.New(prefix, time.Hour, timer)
	require.NoError(t, identityErr)

	mgmtPrefix, _ := enc.NameFromStr("/localhost/nfd")
	replies := make(chan enc.Buffer, 4)
	face.OnSend = func(pkt enc.Buffer) {
		parsed, _, parseErr := spec.ReadPacket(enc.NewBufferReader(pkt))
		require.NoError(t, parseErr)
		if parsed.Data != nil {
			replies <- pkt
			return
		}
		if mgmtPrefix.IsPrefix(parsed.Interest.NameV) {
			response := &mgmt.ControlResponse{
				Val: &mgmt.ControlResponseVal{StatusCode: 200, StatusText: "OK"},
			}
			responseWire, _, makeErr := spec.Spec{}.MakeData(
				parsed.Interest.NameV,
				&ndn.DataConfig{ContentType: utils.IdPtr(ndn.ContentTypeBlob)},
				response.Encode(),
				sec.NewSha256Signer())
			require.NoError(t, makeErr)
			require.NoError(t, face.FeedPacket(responseWire.Join()))
		}
	}
	return face, client, identity, replies
}

func awaitReply(t *testing.T, replies chan enc.Buffer) enc.Buffer {
	select {
	case buf := <-replies:
		return buf
	case <-time.After(time.Second):
		t.Fatal("no reply from producer")
		return nil
	}
}

func TestProducerServesSignedPayload(t *testing.T) {
	face, client, identity, replies := loopback(t)
	defer client.Shutdown()

	prefix, _ := enc.NameFromStr("/example/testApp")
	producer := produce.New(client, identity, prefix, 2*time.Second)
	require.NoError(t, producer.Serve())

	requestName, _ := enc.NameFromStr("/example/testApp/randomData/t=1570430517101")
	interestWire, _, _, err := spec.Spec{}.MakeInterest(requestName, &ndn.InterestConfig{
		MustBeFresh: true,
		Lifetime:    utils.IdPtr(6 * time.Second),
	}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, face.FeedPacket(interestWire.Join()))

	data, sigCovered, readErr := spec.Spec{}.ReadData(enc.NewBufferReader(awaitReply(t, replies)))
	require.NoError(t, readErr)
	require.True(t, data.Name().Equal(requestName))
	require.Len(t, data.Content().Join(), 16)
	require.Equal(t, 2*time.Second, *data.Freshness())

	// The payload is signed by the producer's identity.
	require.Equal(t, ndn.SignatureSha256WithEcdsa, data.Signature().SigType())
	require.True(t, data.Signature().KeyName().Equal(identity.KeyName))
	require.True(t, crypto.EcdsaValidate(sigCovered, data.Signature().SigValue(), identity.PublicKey()))

	require.NoError(t, producer.Stop())
}

func TestProducerServesCertificate(t *testing.T) {
	face, client, identity, replies := loopback(t)
	defer client.Shutdown()

	prefix, _ := enc.NameFromStr("/example/testApp")
	producer := produce.New(client, identity, prefix, 0)
	require.NoError(t, producer.Serve())

	interestWire, _, _, err := spec.Spec{}.MakeInterest(identity.KeyName, &ndn.InterestConfig{
		MustBeFresh: true,
		CanBePrefix: true,
		Lifetime:    utils.IdPtr(6 * time.Second),
	}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, face.FeedPacket(interestWire.Join()))

	cert, decodeErr := certificate.Decode(awaitReply(t, replies))
	require.NoError(t, decodeErr)
	require.True(t, cert.Name.Equal(identity.CertName))

	publicKey, keyErr := cert.PublicKey()
	require.NoError(t, keyErr)
	require.True(t, identity.PublicKey().Equal(publicKey))

	require.NoError(t, producer.Stop())
}
