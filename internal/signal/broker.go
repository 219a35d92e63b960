package signal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/famlink/assist-server-go/internal/redis"
)

// Broker fans signaling envelopes out over redis pub/sub, one channel per
// session code. The channel has broadcast semantics only: no persistence,
// no delivery to late joiners. The hello/re-offer dance in the protocol
// covers the subscribe-order race.
type Broker struct {
	redis  *redisclient.Client
	subs   map[string]*channelState
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// channelState tracks one channel's subscribers and the cancel for its
// redis reader goroutine. Codes are short-lived and reused, so the reader
// must die with its last subscriber: a leftover reader would deliver every
// message a second time once the channel is subscribed again.
type channelState struct {
	subs   map[*Subscription]bool
	cancel context.CancelFunc
}

// Subscription receives envelopes published to one channel, including the
// subscriber's own (peers filter by Envelope.From).
type Subscription struct {
	Channel   string
	Envelopes chan Envelope
	Done      chan struct{}
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:  redisClient,
		subs:   make(map[string]*channelState),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Broker) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		Channel:   channel,
		Envelopes: make(chan Envelope, 100),
		Done:      make(chan struct{}),
	}

	b.mu.Lock()
	state := b.subs[channel]
	if state == nil {
		readerCtx, readerCancel := context.WithCancel(b.ctx)
		state = &channelState{
			subs:   make(map[*Subscription]bool),
			cancel: readerCancel,
		}
		b.subs[channel] = state
		go b.subscribeToRedis(readerCtx, channel)
	}
	state.subs[sub] = true
	count := len(state.subs)
	b.mu.Unlock()

	log.Info().
		Str("channel", channel).
		Int("subscriberCount", count).
		Msg("signal subscriber joined")

	return sub
}

func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.subs[sub.Channel]; ok && state.subs[sub] {
		delete(state.subs, sub)
		close(sub.Done)

		if len(state.subs) == 0 {
			state.cancel()
			delete(b.subs, sub.Channel)
		}

		log.Info().
			Str("channel", sub.Channel).
			Int("subscriberCount", len(state.subs)).
			Msg("signal subscriber left")
	}
}

func (b *Broker) Publish(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(ctx context.Context, channel string) {
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().Str("channel", channel).Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			env, err := ParseEnvelope([]byte(msg.Payload))
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed signal message")
				continue
			}

			b.broadcast(channel, env)
		}
	}
}

func (b *Broker) broadcast(channel string, env Envelope) {
	b.mu.RLock()
	var subs []*Subscription
	if state, ok := b.subs[channel]; ok {
		subs = make([]*Subscription, 0, len(state.subs))
		for sub := range state.subs {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.Envelopes <- env:
		default:
			log.Warn().
				Str("channel", channel).
				Str("type", string(env.Type)).
				Msg("subscriber buffer full, dropping signal message")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, state := range b.subs {
		for sub := range state.subs {
			close(sub.Done)
		}
	}
	b.subs = make(map[string]*channelState)
}

func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if state, ok := b.subs[channel]; ok {
		return len(state.subs)
	}
	return 0
}
