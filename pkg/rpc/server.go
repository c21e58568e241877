// Package rpc implements message-pattern request/reply on top of the events
// bus: every pattern is a topic, requests carry a correlation id and a
// reply_to topic in their metadata, and the server publishes a Reply to
// reply_to. A request without reply_to is handled as a fire-and-forget event.
//
// Each pattern is consumed by one subscription, so requests for the same
// pattern are handled one at a time in arrival order.
package rpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
)

const (
	// MetadataReplyTo names the topic the reply must be published to.
	MetadataReplyTo = "reply_to"

	instrumentationName = "github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/rpc"
)

// Bus is the subset of events.EventBus the transport needs.
type Bus interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
	Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error)
}

// HandlerFunc handles one request payload. The returned value is encoded as
// the reply response; a non-nil error is normalized with errrpc.Normalize and
// replied as the reply err.
type HandlerFunc func(ctx context.Context, payload []byte) (any, error)

// ReplyCache stores encoded replies by correlation id. Implemented by
// cache.ReplyCache.
type ReplyCache interface {
	Get(ctx context.Context, correlationID string) ([]byte, bool, error)
	Set(ctx context.Context, correlationID string, reply []byte) error
}

// ErrorReporter receives every 5xx failure, e.g. telemetry.CaptureError.
type ErrorReporter func(ctx context.Context, err error, tags map[string]string)

// Option configures a Server.
type Option func(*Server)

// WithReplyCache makes the server replay cached replies for redelivered requests.
func WithReplyCache(c ReplyCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithErrorReporter registers a sink for internal errors.
func WithErrorReporter(r ErrorReporter) Option {
	return func(s *Server) { s.report = r }
}

// Server routes request messages to handlers by pattern and publishes replies.
type Server struct {
	bus      Bus
	log      logger.Logger
	cache    ReplyCache
	report   ErrorReporter
	handlers map[string]HandlerFunc
	patterns []string
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewServer returns a Server publishing and subscribing through bus.
func NewServer(bus Bus, log logger.Logger, opts ...Option) (*Server, error) {
	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("rpc.server.requests",
		metric.WithDescription("Requests handled, by pattern and reply code."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("rpc: requests counter: %w", err)
	}
	duration, err := meter.Float64Histogram("rpc.server.duration",
		metric.WithDescription("Handler latency, by pattern and reply code."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("rpc: duration histogram: %w", err)
	}

	s := &Server{
		bus:      bus,
		log:      log,
		handlers: make(map[string]HandlerFunc),
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle registers h for pattern. Registering a pattern twice panics.
func (s *Server) Handle(pattern string, h HandlerFunc) {
	if _, dup := s.handlers[pattern]; dup {
		panic(fmt.Sprintf("rpc: duplicate handler for pattern %q", pattern))
	}
	s.handlers[pattern] = h
	s.patterns = append(s.patterns, pattern)
}

// Patterns returns the registered patterns in registration order.
func (s *Server) Patterns() []string {
	return append([]string(nil), s.patterns...)
}

// Start subscribes every registered pattern. Handling stops when ctx is
// cancelled or the bus is closed.
func (s *Server) Start(ctx context.Context) error {
	for _, pattern := range s.patterns {
		errCh, err := s.bus.Subscribe(ctx, pattern, s.consume(pattern, s.handlers[pattern]))
		if err != nil {
			return fmt.Errorf("rpc: subscribe %s: %w", pattern, err)
		}

		// Drain subscriber errors in background so the channel never blocks.
		go func(pattern string) {
			for err := range errCh {
				s.log.ErrorContext(ctx, "rpc: subscriber error", "pattern", pattern, "error", err)
			}
		}(pattern)
	}

	s.log.Info("rpc server listening", "patterns", s.patterns)
	return nil
}

// consume returns the bus handler for one pattern. It only returns an error
// when the reply could not be published, which makes the bus retry.
func (s *Server) consume(pattern string, h HandlerFunc) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = msg.UUID
		}
		replyTo := msg.Metadata.Get(MetadataReplyTo)
		ctx = logger.WithCorrelationID(ctx, correlationID)

		if replyTo != "" && s.cache != nil {
			cached, ok, err := s.cache.Get(ctx, correlationID)
			switch {
			case err != nil:
				s.log.WarnContext(ctx, "rpc: reply cache lookup failed", "pattern", pattern, "error", err)
			case ok:
				s.log.InfoContext(ctx, "rpc: replaying cached reply", "pattern", pattern)
				return s.publishReply(ctx, replyTo, correlationID, cached)
			}
		}

		reply := s.dispatch(ctx, pattern, correlationID, h, msg.Payload)

		if replyTo == "" {
			return nil
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, correlationID, reply); err != nil {
				s.log.WarnContext(ctx, "rpc: reply cache store failed", "pattern", pattern, "error", err)
			}
		}
		return s.publishReply(ctx, replyTo, correlationID, reply)
	}
}

func (s *Server) dispatch(ctx context.Context, pattern, correlationID string, h HandlerFunc, payload []byte) []byte {
	ctx, span := s.tracer.Start(ctx, pattern,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.method", pattern),
			attribute.String("messaging.message.conversation_id", correlationID),
		),
	)
	defer span.End()
	start := time.Now()

	body, err := s.invoke(ctx, h, payload)
	reply, rpcErr := encodeReply(body, err)

	code := 200
	if rpcErr != nil {
		code = rpcErr.Code
		span.SetStatus(codes.Error, rpcErr.Message)
		span.SetAttributes(attribute.Int("rpc.error_code", code))

		if code >= 500 {
			s.log.ErrorContext(ctx, "rpc: request failed", "pattern", pattern, "code", code, "error", rpcErr.Message)
			if s.report != nil {
				s.report(ctx, rpcErr, map[string]string{"rpc.pattern": pattern, "correlation_id": correlationID})
			}
		} else {
			s.log.WarnContext(ctx, "rpc: request rejected", "pattern", pattern, "code", code, "error", rpcErr.Message)
		}
	}

	attrs := metric.WithAttributes(attribute.String("rpc.method", pattern), attribute.Int("rpc.code", code))
	s.requests.Add(ctx, 1, attrs)
	s.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	return reply
}

// invoke calls h, turning a panic into an internal error.
func (s *Server) invoke(ctx context.Context, h HandlerFunc, payload []byte) (body any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.ErrorContext(ctx, "rpc: handler panicked", "panic", p, "stack", string(debug.Stack()))
			body = nil
			err = errrpc.Internal(fmt.Sprint(p), "")
		}
	}()
	return h(ctx, payload)
}

func (s *Server) publishReply(ctx context.Context, replyTo, correlationID string, reply []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), reply)
	middleware.SetCorrelationID(correlationID, msg)
	if err := s.bus.Publish(ctx, replyTo, msg); err != nil {
		return fmt.Errorf("rpc: publish reply: %w", err)
	}
	return nil
}
