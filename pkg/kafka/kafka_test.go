package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.order.created", Topic("order", "created"))
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}
	ev, err := NewEvent("order.created", "o-1", "order", "storefront", payload{OrderID: "o-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, ev.UnmarshalData(&got))
	assert.Equal(t, "o-1", got.OrderID)

	_, err = NewEvent("bad", "x", "x", "x", make(chan int))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: testLogger()}

	ev, err := NewEvent("order.cancelled", "o-9", "order", "storefront", map[string]string{"reason": "late"})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1")

	require.NoError(t, p.Publish(context.Background(), "storefront.order.cancelled", ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "storefront.order.cancelled", msg.Topic)
	assert.Equal(t, []byte("o-9"), msg.Key)
	assert.Len(t, msg.Headers, 3)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, logger: testLogger()}
	ev, err := NewEvent("x", "a", "t", "s", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.x", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestConsumer_CommitsAfterHandling(t *testing.T) {
	ev, err := NewEvent("order.created", "o-1", "order", "storefront", nil)
	require.NoError(t, err)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "storefront.order.created", Offset: 1, Value: raw},
		{Topic: "storefront.order.created", Offset: 2, Value: []byte("{not json")},
	}}

	var (
		mu   sync.Mutex
		seen []string
	)
	handled := make(chan struct{}, 1)
	c := newConsumer(reader, func(_ context.Context, e *Event) error {
		mu.Lock()
		seen = append(seen, e.AggregateID)
		mu.Unlock()
		handled <- struct{}{}
		return nil
	}, testLogger())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-handled
	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"o-1"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.True(t, reader.closed)
}

func TestConsumer_GivesUpAfterRetries(t *testing.T) {
	ev, err := NewEvent("order.created", "o-2", "order", "storefront", nil)
	require.NoError(t, err)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	reader := &fakeReader{queue: []kafka.Message{{Offset: 7, Value: raw}}}

	var (
		mu    sync.Mutex
		calls int
	)
	c := newConsumer(reader, func(context.Context, *Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("redis down")
	}, testLogger())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, handlerAttempts, calls)
}
