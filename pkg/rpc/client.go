package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
)

// Client sends requests to a Server and waits for their replies on a
// private reply topic.
type Client struct {
	bus        Bus
	log        logger.Logger
	replyTopic string
	timeout    time.Duration
	tracer     trace.Tracer

	mu      sync.Mutex
	pending map[string]chan Reply
}

// NewClient subscribes to a fresh reply topic and returns a Client whose Send
// calls give up after timeout (no limit when timeout <= 0). The subscription
// lives until ctx is cancelled or the bus is closed.
func NewClient(ctx context.Context, bus Bus, log logger.Logger, timeout time.Duration) (*Client, error) {
	c := &Client{
		bus:        bus,
		log:        log,
		replyTopic: "reply." + strings.ReplaceAll(uuid.NewString(), "-", ""),
		timeout:    timeout,
		tracer:     otel.Tracer(instrumentationName),
		pending:    make(map[string]chan Reply),
	}

	errCh, err := bus.Subscribe(ctx, c.replyTopic, c.route)
	if err != nil {
		return nil, fmt.Errorf("rpc: subscribe reply topic: %w", err)
	}
	go func() {
		for err := range errCh {
			log.ErrorContext(ctx, "rpc: reply subscriber error", "topic", c.replyTopic, "error", err)
		}
	}()
	return c, nil
}

// ReplyTopic returns the topic this client receives replies on.
func (c *Client) ReplyTopic() string {
	return c.replyTopic
}

// Send publishes payload to pattern and waits for the reply. On success the
// response is decoded into out when out is non-nil. A failure reply is
// returned as *errrpc.Error; a timeout wraps context.DeadlineExceeded.
func (c *Client) Send(ctx context.Context, pattern string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rpc: encode %s payload: %w", pattern, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, pattern,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", pattern)),
	)
	defer span.End()

	correlationID := uuid.NewString()
	ch := make(chan Reply, 1)
	c.mu.Lock()
	c.pending[correlationID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	msg := message.NewMessage(watermill.NewUUID(), data)
	middleware.SetCorrelationID(correlationID, msg)
	msg.Metadata.Set(MetadataReplyTo, c.replyTopic)
	if err := c.bus.Publish(ctx, pattern, msg); err != nil {
		return fmt.Errorf("rpc: send %s: %w", pattern, err)
	}

	select {
	case reply := <-ch:
		if reply.Err != nil {
			return reply.Err
		}
		if out != nil && len(reply.Response) > 0 {
			if err := json.Unmarshal(reply.Response, out); err != nil {
				return fmt.Errorf("rpc: decode %s response: %w", pattern, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rpc: %s: waiting for reply: %w", pattern, ctx.Err())
	}
}

// Emit publishes payload to pattern as an event; no reply is produced.
func (c *Client) Emit(ctx context.Context, pattern string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rpc: encode %s payload: %w", pattern, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	middleware.SetCorrelationID(uuid.NewString(), msg)
	if err := c.bus.Publish(ctx, pattern, msg); err != nil {
		return fmt.Errorf("rpc: emit %s: %w", pattern, err)
	}
	return nil
}

// route hands a reply to the Send call waiting on its correlation id.
// Replies nobody waits for (timed out callers) are dropped.
func (c *Client) route(ctx context.Context, msg *message.Message) error {
	correlationID := middleware.MessageCorrelationID(msg)

	var reply Reply
	if err := json.Unmarshal(msg.Payload, &reply); err != nil {
		c.log.WarnContext(ctx, "rpc: undecodable reply dropped", "correlation_id", correlationID, "error", err)
		return nil
	}

	c.mu.Lock()
	ch, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.DebugContext(ctx, "rpc: late reply dropped", "correlation_id", correlationID)
		return nil
	}
	ch <- reply
	return nil
}
