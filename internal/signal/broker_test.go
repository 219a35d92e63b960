package signal

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/famlink/assist-server-go/internal/redis"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	broker := NewBroker(client)
	t.Cleanup(broker.Close)

	return broker
}

// drain collects every envelope that arrives within the window.
func drain(sub *Subscription, window time.Duration) []Envelope {
	var got []Envelope
	deadline := time.After(window)
	for {
		select {
		case env := <-sub.Envelopes:
			got = append(got, env)
		case <-deadline:
			return got
		}
	}
}

func TestBrokerDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("fans a publish out to a subscriber", func(t *testing.T) {
		broker := newTestBroker(t)

		sub := broker.Subscribe("signal:123456")
		defer broker.Unsubscribe(sub)
		time.Sleep(50 * time.Millisecond)

		env, err := NewEnvelope("peer-a", Hello{At: 1})
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, "signal:123456", env))

		got := drain(sub, 300*time.Millisecond)
		require.Len(t, got, 1)
		assert.Equal(t, TypeHello, got[0].Type)
		assert.Equal(t, "peer-a", got[0].From)
	})

	t.Run("delivers exactly once after subscriber churn", func(t *testing.T) {
		broker := newTestBroker(t)

		first := broker.Subscribe("signal:654321")
		time.Sleep(50 * time.Millisecond)
		broker.Unsubscribe(first)

		second := broker.Subscribe("signal:654321")
		defer broker.Unsubscribe(second)
		time.Sleep(50 * time.Millisecond)

		env, err := NewEnvelope("peer-a", Hello{At: 2})
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, "signal:654321", env))

		got := drain(second, 300*time.Millisecond)
		assert.Len(t, got, 1)
	})

	t.Run("last unsubscribe stops delivery and closes Done", func(t *testing.T) {
		broker := newTestBroker(t)

		sub := broker.Subscribe("signal:111111")
		time.Sleep(50 * time.Millisecond)
		broker.Unsubscribe(sub)

		select {
		case <-sub.Done:
		default:
			t.Fatal("Done should be closed after unsubscribe")
		}

		assert.Equal(t, 0, broker.SubscriberCount("signal:111111"))

		env, err := NewEnvelope("peer-a", Hello{At: 3})
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, "signal:111111", env))

		got := drain(sub, 200*time.Millisecond)
		assert.Empty(t, got)
	})

	t.Run("channels are isolated", func(t *testing.T) {
		broker := newTestBroker(t)

		a := broker.Subscribe("signal:100001")
		b := broker.Subscribe("signal:100002")
		defer broker.Unsubscribe(a)
		defer broker.Unsubscribe(b)
		time.Sleep(50 * time.Millisecond)

		env, err := NewEnvelope("peer-a", Hello{At: 4})
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, "signal:100001", env))

		assert.Len(t, drain(a, 300*time.Millisecond), 1)
		assert.Empty(t, drain(b, 100*time.Millisecond))
	})
}
