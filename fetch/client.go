// Package fetch implements a request/response client for named-data
// networks. A Client keeps one pending-table entry per outstanding request,
// delivers exactly one terminal outcome for it (data, nack, timeout, or
// cancellation), and optionally runs a response validator before a fetch
// resolves. It also serves attached prefixes, so a producer can run on the
// same client.
package fetch

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	mgmt "github.com/zjkmxy/go-ndn/pkg/ndn/mgmt_2022"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
)

const DefaultLifetime = 4 * time.Second

// timeoutMargin delays the timeout timer slightly past the lifetime so a
// response racing the deadline is still delivered.
const timeoutMargin = 10 * time.Millisecond

// Result is the terminal outcome of one expressed request.
type Result int

const (
	ResultNone Result = iota
	ResultData
	ResultNack
	ResultTimeout
	ResultCancel
)

// ExpressCallback receives the terminal outcome of an expressed request.
// It is invoked exactly once and must not block, as it runs on the client's
// delivery path.
type ExpressCallback func(result Result, data ndn.Data, rawData enc.Wire, sigCovered enc.Wire, nackReason uint64)

// ReplyFunc sends an encoded Data packet in response to a received request.
type ReplyFunc func(encodedData enc.Wire) error

// InterestHandler serves requests arriving under an attached prefix.
type InterestHandler func(interest ndn.Interest, rawInterest enc.Wire, sigCovered enc.Wire, reply ReplyFunc, deadline time.Time)

type pendingRequest struct {
	callback      ExpressCallback
	deadline      time.Time
	canBePrefix   bool
	mustBeFresh   bool
	impSha256     []byte
	nodeName      enc.Name
	timeoutCancel func() error
}

type handlerEntry = InterestHandler
type pendingList = []*pendingRequest

// Client issues requests and serves attached prefixes over one Face.
type Client struct {
	face  Face
	timer ndn.Timer

	// handlers holds the attached prefix handlers.
	handlers *nameTrie[handlerEntry]
	// pending holds the outstanding outgoing requests.
	pending *nameTrie[pendingList]

	handlerLock sync.Mutex
	pendingLock sync.Mutex

	mgmtConf *mgmt.MgmtConfig

	log *log.Entry
}

// NewClient creates a client over the given face and timer. cmdSigner signs
// the management commands used for route registration.
func NewClient(face Face, timer ndn.Timer, cmdSigner ndn.Signer) *Client {
	if face == nil || timer == nil || cmdSigner == nil {
		return nil
	}
	return &Client{
		face:     face,
		timer:    timer,
		handlers: newNameTrie[handlerEntry](),
		pending:  newNameTrie[pendingList](),
		mgmtConf: mgmt.NewConfig(face.IsLocal(), cmdSigner, spec.Spec{}),
		log:      log.WithField("module", "fetch"),
	}
}

func (c *Client) Timer() ndn.Timer {
	return c.timer
}

func (c *Client) Start() error {
	if c.face.IsRunning() {
		return errors.New("face is already running")
	}
	c.face.SetCallback(c.onPacket, c.onError)
	if err := c.face.Open(); err != nil {
		c.log.Errorf("Face failed to open: %v", err)
		return err
	}
	return nil
}

// Shutdown closes the face. In-flight requests are not delivered after the
// face is closed; their owners observe timeout or cancellation.
func (c *Client) Shutdown() error {
	if !c.face.IsRunning() {
		return errors.New("face is not running")
	}
	return c.face.Close()
}

func (c *Client) IsRunning() bool {
	return c.face.IsRunning()
}

// AttachHandler attaches a handler serving requests under prefix. Prefixes
// must be prefix-free: nesting under an attached prefix is rejected.
func (c *Client) AttachHandler(prefix enc.Name, handler InterestHandler) error {
	c.handlerLock.Lock()
	defer c.handlerLock.Unlock()

	pred := func(cb handlerEntry) bool {
		return cb != nil
	}
	n := c.handlers.FirstSatisfyOrNew(prefix, pred)
	if n.Value() != nil || n.HasChildren() {
		return ndn.ErrPrefixPropViolation
	}
	n.SetValue(handler)
	return nil
}

func (c *Client) DetachHandler(prefix enc.Name) error {
	c.handlerLock.Lock()
	defer c.handlerLock.Unlock()

	n := c.handlers.ExactMatch(prefix)
	if n == nil {
		return ndn.ErrInvalidValue{Item: "prefix", Value: prefix}
	}
	n.Delete()
	return nil
}

// Express sends one request and arranges for callback to receive its
// terminal outcome. The entry is keyed by the request name; an implicit
// digest component, if present, is matched against the received packet.
func (c *Client) Express(finalName enc.Name, config *ndn.InterestConfig,
	rawInterest enc.Wire, callback ExpressCallback) error {
	_, err := c.express(finalName, config, rawInterest, callback)
	return err
}

func (c *Client) express(finalName enc.Name, config *ndn.InterestConfig,
	rawInterest enc.Wire, callback ExpressCallback) (*pendingRequest, error) {
	if len(finalName) == 0 {
		return nil, ndn.ErrInvalidValue{Item: "finalName", Value: finalName}
	}
	if callback == nil {
		callback = func(Result, ndn.Data, enc.Wire, enc.Wire, uint64) {}
	}

	nodeName := finalName
	var impSha256 []byte = nil
	lastComp := finalName[len(finalName)-1]
	if lastComp.Typ == enc.TypeImplicitSha256DigestComponent {
		impSha256 = lastComp.Val
		nodeName = finalName[:len(finalName)-1]
	}

	lifetime := DefaultLifetime
	if config.Lifetime != nil {
		lifetime = *config.Lifetime
	}

	p := &pendingRequest{
		callback:    callback,
		deadline:    c.timer.Now().Add(lifetime),
		canBePrefix: config.CanBePrefix,
		mustBeFresh: config.MustBeFresh,
		impSha256:   impSha256,
		nodeName:    nodeName,
	}

	func() {
		c.pendingLock.Lock()
		defer c.pendingLock.Unlock()
		n := c.pending.MatchAlways(nodeName)
		p.timeoutCancel = c.timer.Schedule(lifetime+timeoutMargin, func() {
			c.onTimeout(n)
		})
		n.SetValue(append(n.Value(), p))
	}()

	if err := c.face.Send(rawInterest); err != nil {
		c.log.Errorf("Failed to send request: %v", err)
		c.removePending(p)
		return nil, err
	}
	c.log.WithField("name", finalName.String()).Debug("Request sent.")
	return p, nil
}

// removePending takes the entry out of the pending table. It reports false
// when the entry already reached a terminal outcome.
func (c *Client) removePending(p *pendingRequest) bool {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	n := c.pending.ExactMatch(p.nodeName)
	if n == nil {
		return false
	}
	lst := n.Value()
	for i, entry := range lst {
		if entry == p {
			n.SetValue(append(lst[:i:i], lst[i+1:]...))
			n.DeleteIf(func(l pendingList) bool {
				return len(l) == 0
			})
			p.timeoutCancel()
			return true
		}
	}
	return false
}

// cancelPending cancels an in-flight request. Delivers ResultCancel when the
// request is still pending; otherwise it is a no-op.
func (c *Client) cancelPending(p *pendingRequest) {
	if c.removePending(p) {
		p.callback(ResultCancel, nil, nil, nil, spec.NackReasonNone)
	}
}

func (c *Client) onPacket(reader enc.ParseReader) error {
	var nackReason uint64 = spec.NackReasonNone
	var pitToken []byte = nil
	var raw enc.Wire = nil

	pkt, ctx, err := spec.ReadPacket(reader)
	if err != nil {
		// Recoverable: drop the packet and keep the face running.
		c.log.Errorf("Failed to parse packet: %v", err)
		return nil
	}
	if pkt.LpPacket != nil {
		lpPkt := pkt.LpPacket
		if lpPkt.FragIndex != nil || lpPkt.FragCount != nil {
			c.log.Warn("Fragmented LpPackets are not supported. Drop.")
			return nil
		}
		raw = pkt.LpPacket.Fragment
		if len(raw) == 1 {
			pkt, ctx, err = spec.ReadPacket(enc.NewBufferReader(raw[0]))
		} else {
			pkt, ctx, err = spec.ReadPacket(enc.NewWireReader(raw))
		}
		if err != nil || (pkt.Data == nil) == (pkt.Interest == nil) {
			c.log.Errorf("Failed to parse packet in LpPacket: %v", err)
			return nil
		}
		if lpPkt.Nack != nil {
			nackReason = lpPkt.Nack.Reason
		}
		pitToken = lpPkt.PitToken
	} else {
		raw = reader.Range(0, reader.Length())
	}

	if nackReason != spec.NackReasonNone {
		if pkt.Interest == nil {
			c.log.Error("Received nack for a Data packet")
			return nil
		}
		c.log.WithField("name", pkt.Interest.NameV.String()).Debugf("Nack received for %v", nackReason)
		c.onNack(pkt.Interest.NameV, nackReason)
	} else if pkt.Interest != nil {
		c.log.WithField("name", pkt.Interest.NameV.String()).Debug("Request received.")
		c.onInterest(pkt.Interest, ctx.Interest_context.SigCovered(), raw, pitToken)
	} else if pkt.Data != nil {
		c.log.WithField("name", pkt.Data.NameV.String()).Debug("Data received.")
		c.onData(pkt.Data, ctx.Data_context.SigCovered(), raw)
	} else {
		log.Fatal("Unreachable. Check spec implementation.")
	}
	return nil
}

func (c *Client) onData(pkt *spec.Data, sigCovered enc.Wire, raw enc.Wire) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()

	n := c.pending.PrefixMatch(pkt.NameV)
	for cur := n; cur != nil; cur = cur.Parent() {
		curListSize := len(cur.Value())
		if curListSize <= 0 {
			continue
		}
		newList := make(pendingList, 0, curListSize)
		for _, entry := range cur.Value() {
			// A shorter-named entry only matches when it allows prefixes.
			// MustBeFresh is the forwarder cache's job, not checked here.
			if cur.Depth() < len(pkt.NameV) && !entry.canBePrefix {
				newList = append(newList, entry)
				continue
			}
			if entry.impSha256 != nil {
				h := sha256.New()
				for _, buf := range raw {
					h.Write(buf)
				}
				if !bytes.Equal(entry.impSha256, h.Sum(nil)) {
					newList = append(newList, entry)
					continue
				}
			}
			entry.timeoutCancel()
			entry.callback(ResultData, pkt, raw, sigCovered, spec.NackReasonNone)
		}
		cur.SetValue(newList)
		cur.DeleteIf(func(lst pendingList) bool {
			return len(lst) == 0
		})
	}
}

func (c *Client) onNack(name enc.Name, reason uint64) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()

	// Pending entries are keyed without a trailing implicit digest.
	if len(name) > 0 && name[len(name)-1].Typ == enc.TypeImplicitSha256DigestComponent {
		name = name[:len(name)-1]
	}
	n := c.pending.ExactMatch(name)
	if n == nil {
		c.log.WithField("name", name.String()).Warn("Received nack for an unknown request. Drop.")
		return
	}
	for _, entry := range n.Value() {
		entry.timeoutCancel()
		entry.callback(ResultNack, nil, nil, nil, reason)
	}
	n.Delete()
}

func (c *Client) onTimeout(n *nameTrie[pendingList]) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()

	now := c.timer.Now()
	newList := make(pendingList, 0, len(n.Value()))
	for _, entry := range n.Value() {
		if entry.deadline.After(now) {
			newList = append(newList, entry)
			continue
		}
		entry.callback(ResultTimeout, nil, nil, nil, spec.NackReasonNone)
	}
	n.SetValue(newList)
	n.DeleteIf(func(lst pendingList) bool {
		return len(lst) == 0
	})
}

func (c *Client) onInterest(pkt *spec.Interest, sigCovered enc.Wire, raw enc.Wire, pitToken []byte) {
	deadline := c.timer.Now()
	if pkt.InterestLifetimeV != nil {
		deadline = deadline.Add(*pkt.InterestLifetimeV)
	} else {
		deadline = deadline.Add(DefaultLifetime)
	}

	handler := func() InterestHandler {
		c.handlerLock.Lock()
		defer c.handlerLock.Unlock()
		for n := c.handlers.PrefixMatch(pkt.NameV); n != nil; n = n.Parent() {
			if n.Value() != nil {
				return n.Value()
			}
		}
		return nil
	}()
	if handler == nil {
		c.log.WithField("name", pkt.NameV.String()).Warn("No handler. Drop.")
		return
	}

	reply := func(encodedData enc.Wire) error {
		if deadline.Before(c.timer.Now()) {
			c.log.WithField("name", pkt.NameV.String()).Warn("Deadline exceeded. Drop.")
			return ndn.ErrDeadlineExceed
		}
		if !c.face.IsRunning() {
			c.log.WithField("name", pkt.NameV.String()).Error("Cannot reply through a closed face. Drop.")
			return ndn.ErrFaceDown
		}
		if pitToken == nil {
			return c.face.Send(encodedData)
		}
		lpPkt := &spec.Packet{
			LpPacket: &spec.LpPacket{
				PitToken: pitToken,
				Fragment: encodedData,
			},
		}
		encoder := spec.PacketEncoder{}
		encoder.Init(lpPkt)
		wire := encoder.Encode(lpPkt)
		if wire == nil {
			return ndn.ErrFailedToEncode
		}
		return c.face.Send(wire)
	}

	// Handlers may block (e.g. sign data), so run them off the face loop.
	go handler(pkt, raw, sigCovered, reply, deadline)
}

func (c *Client) onError(err error) error {
	c.log.Errorf("Error on face: %v", err)
	return err
}
