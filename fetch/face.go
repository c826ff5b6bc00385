package fetch

import (
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// Face is the transport connecting the client to the forwarding network.
// The stream faces shipped with go-ndn's basic engine satisfy this
// interface, as does any in-memory face used for testing.
type Face interface {
	Open() error
	Close() error
	Send(pkt enc.Wire) error
	IsRunning() bool
	IsLocal() bool
	SetCallback(onPkt func(r enc.ParseReader) error,
		onError func(err error) error)
}
