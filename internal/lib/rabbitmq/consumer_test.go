package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	return f.Nack(tag, false, false)
}

func TestConsume_AcksAndNacks(t *testing.T) {
	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("fail")}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("ok")}
	close(deliveries)

	handler := func(_ context.Context, body []byte) error {
		if string(body) == "fail" {
			return errors.New("boom")
		}
		return nil
	}

	err := consume(context.Background(), deliveries, 2, sl.NewDiscardLogger(), handler)
	assert.ErrorIs(t, err, ErrDeliveriesClosed)

	assert.ElementsMatch(t, []uint64{1, 3}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
}

func TestConsume_BoundedConcurrency(t *testing.T) {
	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 20)
	for i := 1; i <= 20; i++ {
		deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i)}
	}
	close(deliveries)

	var inFlight, maxSeen int32
	handler := func(context.Context, []byte) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	_ = consume(context.Background(), deliveries, 3, sl.NewDiscardLogger(), handler)

	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(3))
	assert.Len(t, ack.acked, 20)
}

func TestConsume_StopsOnContextCancel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- consume(ctx, deliveries, 1, sl.NewDiscardLogger(), func(context.Context, []byte) error { return nil })
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
