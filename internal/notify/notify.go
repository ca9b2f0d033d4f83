// Package notify fans a detected state transition out to the channels
// subscribed to the originating monitor. Provider adapters live in
// subpackages; this package holds the channel-agnostic contract and the
// dispatch coordinator.
package notify

import (
	"context"
	"errors"

	"github.com/openstatus-dev/openstatus/internal/types"
)

// ErrTestNotSupported is returned by SendTest for providers that cannot
// deliver a test notification (email, sms).
var ErrTestNotSupported = errors.New("test notifications are not supported")

type SendState string

const (
	StateDelivered      SendState = "delivered"
	StateRejected       SendState = "rejected"
	StateTransportError SendState = "transport_error"
)

// SendResult is the outcome of a single delivery attempt to one channel.
type SendResult struct {
	State  SendState
	Detail string
}

func Delivered() SendResult {
	return SendResult{State: StateDelivered}
}

func Rejected(reason string) SendResult {
	return SendResult{State: StateRejected, Detail: reason}
}

func TransportError(detail string) SendResult {
	return SendResult{State: StateTransportError, Detail: detail}
}

// Adapter is the per-provider contract. Implementations are stateless: all
// variability comes from the message data and the destination. Send performs
// a single external call with no internal retry.
type Adapter interface {
	Provider() types.Provider
	Send(ctx context.Context, kind types.EventKind, data MessageData, dest types.NotifierConfig) SendResult
	SendTest(ctx context.Context, data MessageData, dest types.NotifierConfig) error
}
