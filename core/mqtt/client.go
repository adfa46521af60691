// Package mqtt defines how planning results and progress leave the process
// over a message broker.
package mqtt

import (
	"context"

	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/trace"
)

// Publisher sends results and solver progress to a broker.
type Publisher interface {
	// PublishResult sends the result of one period and returns the message id.
	PublishResult(ctx context.Context, res model.Result) (messageID string, err error)
	// PublishEvent forwards one solver event. Delivery is best effort.
	PublishEvent(ev trace.Event) error
}

// Request asks for a period to be planned.
type Request struct {
	RequestID string       `json:"request_id"`
	Period    model.Period `json:"period"`
}

// RequestHandler processes one planning request received from the broker.
type RequestHandler func(ctx context.Context, req Request)

// RequestSource delivers planning requests until ctx is canceled.
type RequestSource interface {
	HandleRequests(ctx context.Context, h RequestHandler) error
}
