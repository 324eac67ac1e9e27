//go:build local
// +build local

package messagebus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalBus(t *testing.T) (Producer, *LocalConsumer) {
	t.Helper()
	cfg := map[string]any{"local.base.dir": t.TempDir(), "local.poll.interval.ms": 10}
	prod, err := NewProducer(cfg, "test")
	require.NoError(t, err)
	cons, err := NewConsumer(cfg, "test-group")
	require.NoError(t, err)
	t.Cleanup(func() { cons.Close() })
	return prod, cons.(*LocalConsumer)
}

func TestLocalProducerAssignsOffsets(t *testing.T) {
	prod, _ := newLocalBus(t)
	ctx := context.Background()

	for want := int64(0); want < 3; want++ {
		part, off, err := prod.Send(ctx, &Message{Topic: "restaurants", Value: []byte("v")})
		require.NoError(t, err)
		assert.Zero(t, part)
		assert.Equal(t, want, off)
	}
	require.NoError(t, prod.Close())
}

func TestLocalConsumerDeliversInOrder(t *testing.T) {
	prod, cons := newLocalBus(t)
	ctx := context.Background()

	received := make(chan *Message, 10)
	cons.OnMessage(func(msg *Message) {
		received <- msg
		assert.NoError(t, cons.Commit(ctx, msg))
	})
	require.NoError(t, cons.Subscribe([]string{"restaurants"}))

	for _, v := range []string{"a", "b", "c"} {
		_, _, err := prod.Send(ctx, &Message{Topic: "restaurants", Value: []byte(v), Headers: map[string]string{"k": v}})
		require.NoError(t, err)
	}

	for i, want := range []string{"a", "b", "c"} {
		select {
		case msg := <-received:
			assert.Equal(t, want, string(msg.Value))
			assert.Equal(t, want, msg.Headers["k"])
			assert.EqualValues(t, i, msg.Offset)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	assert.Eventually(t, func() bool { return cons.Committed("restaurants") == 3 }, time.Second, 10*time.Millisecond)
	require.NoError(t, cons.Close())
	require.NoError(t, cons.Close())
}

func TestLocalProducerHonoursContext(t *testing.T) {
	prod, _ := newLocalBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := prod.Send(ctx, &Message{Topic: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}
