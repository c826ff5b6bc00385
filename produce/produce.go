// Package produce serves signed content under a name prefix. A Producer
// answers requests below <prefix>/randomData with freshly signed random
// payloads and publishes its identity's certificate under the key name, so
// consumers can validate what they fetch.
package produce

import (
	"time"

	"go-ndnfetch/fetch"
	"go-ndnfetch/keychain"

	"github.com/apex/log"
	"github.com/dchest/uniuri"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	"github.com/zjkmxy/go-ndn/pkg/utils"
)

const (
	// DefaultFreshness marks served payloads fresh long enough for one
	// must-be-fresh retrieval.
	DefaultFreshness = 4 * time.Second
	payloadLength    = 16
)

var randomDataComponent = enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("randomData")}

// Producer serves signed payloads and the signing certificate under one
// prefix.
type Producer struct {
	client    *fetch.Client
	identity  *keychain.Identity
	prefix    enc.Name
	dataName  enc.Name
	freshness time.Duration
	log       *log.Entry
}

// New creates a producer for prefix signing with identity. freshness
// bounds how long served payloads count as fresh; zero means
// DefaultFreshness.
func New(client *fetch.Client, identity *keychain.Identity, prefix enc.Name, freshness time.Duration) *Producer {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	dataName := make(enc.Name, 0, len(prefix)+1)
	dataName = append(dataName, prefix...)
	dataName = append(dataName, randomDataComponent)
	return &Producer{
		client:    client,
		identity:  identity,
		prefix:    prefix,
		dataName:  dataName,
		freshness: freshness,
		log:       log.WithField("module", "produce"),
	}
}

// Serve registers the route for the producer's prefix and attaches the
// payload and certificate handlers.
func (producer *Producer) Serve() error {
	attachDataHandlerError := producer.client.AttachHandler(producer.dataName, producer.onRandomData)
	if attachDataHandlerError != nil {
		return attachDataHandlerError
	}
	attachKeyHandlerError := producer.client.AttachHandler(producer.identity.KeyName, producer.onKey)
	if attachKeyHandlerError != nil {
		return attachKeyHandlerError
	}
	registerRouteError := producer.client.RegisterRoute(producer.prefix)
	if registerRouteError != nil {
		return registerRouteError
	}
	producer.log.WithField("name", producer.prefix.String()).Info("Producer serving.")
	return nil
}

// Stop detaches the handlers and withdraws the route.
func (producer *Producer) Stop() error {
	if detachError := producer.client.DetachHandler(producer.dataName); detachError != nil {
		return detachError
	}
	if detachError := producer.client.DetachHandler(producer.identity.KeyName); detachError != nil {
		return detachError
	}
	return producer.client.UnregisterRoute(producer.prefix)
}

func (producer *Producer) onRandomData(interest ndn.Interest, rawInterest enc.Wire,
	sigCovered enc.Wire, reply fetch.ReplyFunc, deadline time.Time) {
	logger := producer.log.WithField("name", interest.Name().String())
	logger.Info("Serving random payload.")

	payload := []byte(uniuri.NewLen(payloadLength))
	dataWire, _, makeDataError := spec.Spec{}.MakeData(
		interest.Name(),
		&ndn.DataConfig{
			ContentType: utils.IdPtr(ndn.ContentTypeBlob),
			Freshness:   utils.IdPtr(producer.freshness),
		},
		enc.Wire{payload},
		producer.identity.Signer())
	if makeDataError != nil {
		logger.Errorf("Failed to generate data packet: %v", makeDataError)
		return
	}
	if replyError := reply(dataWire); replyError != nil {
		logger.Errorf("Failed to reply: %v", replyError)
	}
}

func (producer *Producer) onKey(interest ndn.Interest, rawInterest enc.Wire,
	sigCovered enc.Wire, reply fetch.ReplyFunc, deadline time.Time) {
	logger := producer.log.WithField("name", interest.Name().String())
	logger.Info("Serving certificate.")

	// The certificate is pre-signed; serve its wire as-is.
	if replyError := reply(producer.identity.CertWire); replyError != nil {
		logger.Errorf("Failed to reply: %v", replyError)
	}
}
