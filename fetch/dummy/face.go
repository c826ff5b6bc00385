// Package dummy provides in-memory test doubles for the client's face and
// timer.
package dummy

import (
	"errors"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// Face is an in-memory face. Sent packets are queued for inspection via
// Consume, and FeedPacket injects a packet as if received from the network.
// An OnSend hook, when set, runs synchronously after each Send, so tests
// can auto-respond to outgoing requests.
type Face struct {
	sendPkts []enc.Buffer
	running  bool
	onPkt    func(r enc.ParseReader) error
	onError  func(err error) error

	// OnSend, when non-nil, observes every packet passed to Send.
	OnSend func(pkt enc.Buffer)
}

func NewFace() *Face {
	return &Face{}
}

func (f *Face) IsRunning() bool {
	return f.running
}

func (f *Face) IsLocal() bool {
	return true
}

func (f *Face) SetCallback(onPkt func(r enc.ParseReader) error,
	onError func(err error) error) {
	f.onPkt = onPkt
	f.onError = onError
}

func (f *Face) Open() error {
	if f.onError == nil || f.onPkt == nil {
		return errors.New("face callbacks are not set")
	}
	if f.running {
		return errors.New("face is already running")
	}
	f.sendPkts = make([]enc.Buffer, 0)
	f.running = true
	return nil
}

func (f *Face) Close() error {
	if !f.running {
		return errors.New("face is not running")
	}
	f.running = false
	return nil
}

// FeedPacket injects one received packet into the face's callback.
func (f *Face) FeedPacket(pkt enc.Buffer) error {
	if !f.running {
		return errors.New("face is not running")
	}
	return f.onPkt(enc.NewBufferReader(pkt))
}

// Consume pops the oldest sent packet.
func (f *Face) Consume() (enc.Buffer, error) {
	if !f.running {
		return nil, errors.New("face is not running")
	}
	if len(f.sendPkts) == 0 {
		return nil, errors.New("no packet to consume")
	}
	pkt := f.sendPkts[0]
	f.sendPkts = f.sendPkts[1:]
	return pkt, nil
}

func (f *Face) Send(pkt enc.Wire) error {
	if !f.running {
		return errors.New("face is not running")
	}
	var buf enc.Buffer
	if len(pkt) == 1 {
		buf = pkt[0]
	} else {
		buf = make(enc.Buffer, 0)
		for _, frag := range pkt {
			buf = append(buf, frag...)
		}
	}
	f.sendPkts = append(f.sendPkts, buf)
	if f.OnSend != nil {
		f.OnSend(buf)
	}
	return nil
}
