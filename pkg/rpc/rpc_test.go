package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/require"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
)

func nopLogger() logger.Logger {
	return logger.NewWithWriter(&config.Config{LogLevel: "error"}, io.Discard)
}

// startPair wires a server and a client over an in-memory bus.
func startPair(t *testing.T, timeout time.Duration, register func(*Server)) *Client {
	t.Helper()
	log := nopLogger()
	bus := events.NewInMemoryEventBus(log)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := NewServer(bus, log)
	require.NoError(t, err)
	register(srv)
	require.NoError(t, srv.Start(ctx))

	client, err := NewClient(ctx, bus, log, timeout)
	require.NoError(t, err)
	return client
}

func TestSend_RoundTrip(t *testing.T) {
	client := startPair(t, 2*time.Second, func(s *Server) {
		s.Handle("echo", func(_ context.Context, payload []byte) (any, error) {
			var in map[string]any
			if err := json.Unmarshal(payload, &in); err != nil {
				return nil, err
			}
			return map[string]any{"ok": true, "echo": in["name"]}, nil
		})
	})

	var out struct {
		OK   bool   `json:"ok"`
		Echo string `json:"echo"`
	}
	err := client.Send(context.Background(), "echo", map[string]string{"name": "Keyboard"}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, "Keyboard", out.Echo)
}

func TestSend_StructuredErrorPassesThrough(t *testing.T) {
	client := startPair(t, 2*time.Second, func(s *Server) {
		s.Handle("missing", func(context.Context, []byte) (any, error) {
			return nil, errrpc.NotFound("Some products do not exist or are not available.",
				"The product with id 9 doesn't exist or is not available.")
		})
	})

	err := client.Send(context.Background(), "missing", json.RawMessage(`{"ids":[9]}`), nil)

	var rpcErr *errrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, 404, rpcErr.Code)
	require.Equal(t, "Not Found", rpcErr.Tag)
	require.Equal(t, []string{"The product with id 9 doesn't exist or is not available."}, rpcErr.Errors)
}

func TestSend_PlainErrorBecomesInternal(t *testing.T) {
	client := startPair(t, 2*time.Second, func(s *Server) {
		s.Handle("boom", func(context.Context, []byte) (any, error) {
			return nil, errors.New("connection refused")
		})
	})

	err := client.Send(context.Background(), "boom", nil, nil)

	var rpcErr *errrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, 500, rpcErr.Code)
	require.Equal(t, "connection refused", rpcErr.Message)
	require.Equal(t, "Internal Server Error", rpcErr.Tag)
}

func TestSend_PanicBecomesInternal(t *testing.T) {
	client := startPair(t, 2*time.Second, func(s *Server) {
		s.Handle("panic", func(context.Context, []byte) (any, error) {
			panic("nil map write")
		})
	})

	err := client.Send(context.Background(), "panic", nil, nil)

	var rpcErr *errrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, 500, rpcErr.Code)
	require.Equal(t, "nil map write", rpcErr.Message)
}

func TestSend_TimesOut(t *testing.T) {
	client := startPair(t, 50*time.Millisecond, func(s *Server) {
		s.Handle("slow", func(context.Context, []byte) (any, error) {
			time.Sleep(200 * time.Millisecond)
			return "late", nil
		})
	})

	err := client.Send(context.Background(), "slow", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandle_DuplicatePatternPanics(t *testing.T) {
	srv, err := NewServer(&recordingBus{}, nopLogger())
	require.NoError(t, err)
	srv.Handle("a", func(context.Context, []byte) (any, error) { return nil, nil })

	require.Panics(t, func() {
		srv.Handle("a", func(context.Context, []byte) (any, error) { return nil, nil })
	})
	require.Equal(t, []string{"a"}, srv.Patterns())
}

func TestConsume_WithoutReplyToPublishesNothing(t *testing.T) {
	bus := &recordingBus{}
	srv, err := NewServer(bus, nopLogger())
	require.NoError(t, err)

	calls := 0
	h := srv.consume("evt", func(context.Context, []byte) (any, error) {
		calls++
		return "ignored", nil
	})

	require.NoError(t, h(context.Background(), message.NewMessage("m1", []byte(`{}`))))
	require.Equal(t, 1, calls)
	require.Empty(t, bus.messages())
}

func TestConsume_ReplaysCachedReply(t *testing.T) {
	bus := &recordingBus{}
	cache := newMapCache()
	srv, err := NewServer(bus, nopLogger(), WithReplyCache(cache))
	require.NoError(t, err)

	calls := 0
	h := srv.consume("create", func(context.Context, []byte) (any, error) {
		calls++
		return map[string]int{"id": calls}, nil
	})

	request := func() *message.Message {
		msg := message.NewMessage("m1", []byte(`{}`))
		middleware.SetCorrelationID("corr-1", msg)
		msg.Metadata.Set(MetadataReplyTo, "reply.x")
		return msg
	}

	require.NoError(t, h(context.Background(), request()))
	require.NoError(t, h(context.Background(), request()))

	require.Equal(t, 1, calls, "redelivered request must not run the handler again")
	sent := bus.messages()
	require.Len(t, sent, 2)
	require.Equal(t, "reply.x", sent[0].topic)
	require.JSONEq(t, `{"response":{"id":1}}`, string(sent[0].msg.Payload))
	require.Equal(t, sent[0].msg.Payload, sent[1].msg.Payload)
	require.Equal(t, "corr-1", middleware.MessageCorrelationID(sent[1].msg))
}

func TestConsume_FallsBackToMessageUUID(t *testing.T) {
	bus := &recordingBus{}
	srv, err := NewServer(bus, nopLogger())
	require.NoError(t, err)

	h := srv.consume("p", func(context.Context, []byte) (any, error) { return 1, nil })
	msg := message.NewMessage("uuid-42", nil)
	msg.Metadata.Set(MetadataReplyTo, "reply.y")

	require.NoError(t, h(context.Background(), msg))
	sent := bus.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "uuid-42", middleware.MessageCorrelationID(sent[0].msg))
}

func TestConsume_ReportsInternalErrorsOnly(t *testing.T) {
	var reported []string
	srv, err := NewServer(&recordingBus{}, nopLogger(), WithErrorReporter(
		func(_ context.Context, err error, tags map[string]string) {
			reported = append(reported, tags["rpc.pattern"]+": "+err.Error())
		}))
	require.NoError(t, err)

	notFound := srv.consume("nf", func(context.Context, []byte) (any, error) {
		return nil, errrpc.NotFound("gone")
	})
	internal := srv.consume("ie", func(context.Context, []byte) (any, error) {
		return nil, errors.New("db down")
	})

	require.NoError(t, notFound(context.Background(), message.NewMessage("1", nil)))
	require.NoError(t, internal(context.Background(), message.NewMessage("2", nil)))
	require.Equal(t, []string{"ie: db down"}, reported)
}

func TestEncodeReply_UnencodableBody(t *testing.T) {
	data, rpcErr := encodeReply(make(chan int), nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, 500, rpcErr.Code)

	var reply Reply
	require.NoError(t, json.Unmarshal(data, &reply))
	require.Nil(t, reply.Response)
	require.NotNil(t, reply.Err)
}

type published struct {
	topic string
	msg   *message.Message
}

type recordingBus struct {
	mu   sync.Mutex
	sent []published
}

func (b *recordingBus) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range msgs {
		b.sent = append(b.sent, published{topic: topic, msg: m})
	}
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string, func(context.Context, *message.Message) error) (<-chan error, error) {
	ch := make(chan error)
	close(ch)
	return ch, nil
}

func (b *recordingBus) messages() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.sent...)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, id string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[id]
	return b, ok, nil
}

func (c *mapCache) Set(_ context.Context, id string, reply []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = reply
	return nil
}
