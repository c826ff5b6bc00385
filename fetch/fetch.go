package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	spec "github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	"github.com/zjkmxy/go-ndn/pkg/utils"
)

var (
	// ErrTimeout is returned when no response arrives within the lifetime.
	ErrTimeout = errors.New("request timed out")
	// ErrCanceled is returned when the request's context is canceled first.
	ErrCanceled = errors.New("request canceled")
	// ErrValidationFailed is returned when a response arrives but the
	// validator rejects it. The cause is not distinguished to the caller.
	ErrValidationFailed = errors.New("response failed validation")
)

// NackError is returned when the network refuses a request. The value is the
// nack reason code reported by the forwarder.
type NackError uint64

func (e NackError) Error() string {
	return fmt.Sprintf("nacked with reason=%d", uint64(e))
}

// Validator decides whether a fetched response is acceptable. Verify may
// itself fetch packets (e.g. certificates) through the same client.
type Validator interface {
	Verify(ctx context.Context, name enc.Name, sigCovered enc.Wire, signature ndn.Signature) bool
}

// Params selects per-request options for Fetch.
type Params struct {
	// MustBeFresh restricts cache matches to fresh entries.
	MustBeFresh bool
	// CanBePrefix allows responses whose name extends the request name.
	CanBePrefix bool
	// Lifetime bounds the wait for a response. Zero means DefaultLifetime.
	Lifetime time.Duration
}

// Response is one validated (or unvalidated) fetched packet.
type Response struct {
	Name       enc.Name
	Data       ndn.Data
	Content    []byte
	Raw        enc.Wire
	SigCovered enc.Wire
}

type fetchOutcome struct {
	result     Result
	data       ndn.Data
	raw        enc.Wire
	sigCovered enc.Wire
	nackReason uint64
}

// Fetch issues one request and blocks until its terminal outcome. When
// validator is non-nil the response must pass it before being returned;
// validation runs in the calling goroutine so the validator is free to fetch
// through the same client. Exactly one outcome is delivered per call.
func (c *Client) Fetch(ctx context.Context, name enc.Name, params Params, validator Validator) (*Response, error) {
	config := &ndn.InterestConfig{
		CanBePrefix: params.CanBePrefix,
		MustBeFresh: params.MustBeFresh,
	}
	if params.Lifetime > 0 {
		config.Lifetime = utils.IdPtr(params.Lifetime)
	}
	wire, _, finalName, err := spec.Spec{}.MakeInterest(name, config, nil, nil)
	if err != nil {
		return nil, err
	}

	// Size 1 so the delivery path never blocks on the callback.
	outcomes := make(chan fetchOutcome, 1)
	p, err := c.express(finalName, config, wire,
		func(result Result, data ndn.Data, raw enc.Wire, sigCovered enc.Wire, nackReason uint64) {
			outcomes <- fetchOutcome{
				result:     result,
				data:       data,
				raw:        raw,
				sigCovered: sigCovered,
				nackReason: nackReason,
			}
		})
	if err != nil {
		return nil, err
	}

	var outcome fetchOutcome
	select {
	case <-ctx.Done():
		c.cancelPending(p)
		// The terminal outcome may have raced the cancellation.
		outcome = <-outcomes
	case outcome = <-outcomes:
	}

	switch outcome.result {
	case ResultData:
		// Fall through to validation below.
	case ResultNack:
		return nil, NackError(outcome.nackReason)
	case ResultTimeout:
		return nil, ErrTimeout
	case ResultCancel:
		return nil, ErrCanceled
	default:
		return nil, ndn.ErrInvalidValue{Item: "result", Value: outcome.result}
	}

	if validator != nil {
		if !validator.Verify(ctx, outcome.data.Name(), outcome.sigCovered, outcome.data.Signature()) {
			return nil, ErrValidationFailed
		}
	}
	return &Response{
		Name:       outcome.data.Name(),
		Data:       outcome.data,
		Content:    outcome.data.Content().Join(),
		Raw:        outcome.raw,
		SigCovered: outcome.sigCovered,
	}, nil
}
