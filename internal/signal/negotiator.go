package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// publisher is the slice of the broker the negotiator needs to send.
type publisher interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// subscriber is the slice it needs to receive.
type subscriber interface {
	Subscribe(channel string) *Subscription
	Unsubscribe(sub *Subscription)
}

// Bus is what a Negotiator rendezvouses through. *Broker implements it.
type Bus interface {
	publisher
	subscriber
}

// EncoderControl lets the quality controller steer whatever produces the
// outbound media. The peer connection alone cannot cap an injected track's
// bitrate, so the source owner passes the knob in.
type EncoderControl interface {
	SetTargetBitrate(bps int)
	SetMaxFramerate(fps float64)
}

// NegotiatorConfig wires one sharer-side peer negotiation.
type NegotiatorConfig struct {
	// Channel is the pub/sub channel for the session code.
	Channel string
	// StunURL configures the single STUN server.
	StunURL string
	// Track is the local media to send.
	Track webrtc.TrackLocal
	// Encoder, when set, receives quality-level changes.
	Encoder EncoderControl
	// SourceDone signals that the local capture ended; the negotiator
	// tears down when it fires.
	SourceDone <-chan struct{}
	// OnControl, when set, receives the auxiliary UI messages
	// (quality, active_source, draw_packet, cam_preview).
	OnControl func(Message)
}

// Negotiator drives one peer connection through the caller-initiates-offer
// protocol: publish an offer, retain it for late joiners, answer hellos
// with a re-broadcast, apply the answer and every ICE candidate as they
// arrive, and adapt outbound quality from the sender stats.
type Negotiator struct {
	cfg    NegotiatorConfig
	bus    Bus
	peerID string

	pc      *webrtc.PeerConnection
	quality *QualityController

	mu         sync.Mutex
	lastOffer  *Offer
	remoteSet  bool
	pendingICE []ICECandidate

	sub       *Subscription
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewNegotiator(bus Bus, cfg NegotiatorConfig) *Negotiator {
	return &Negotiator{
		cfg:     cfg,
		bus:     bus,
		peerID:  uuid.NewString(),
		quality: NewQualityController(LevelHigh),
		done:    make(chan struct{}),
	}
}

// PeerID identifies this negotiator on the channel.
func (n *Negotiator) PeerID() string {
	return n.peerID
}

// Start opens the peer connection, publishes the initial offer, and runs
// the receive and stats loops until Close or teardown.
func (n *Negotiator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	pc, err := n.newPeerConnection()
	if err != nil {
		cancel()
		return err
	}
	n.pc = pc

	if n.cfg.Track != nil {
		if _, err := pc.AddTrack(n.cfg.Track); err != nil {
			pc.Close()
			cancel()
			return fmt.Errorf("add track: %w", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			log.Debug().Str("channel", n.cfg.Channel).Msg("ice gathering complete")
			return
		}
		init := c.ToJSON()
		n.publish(ctx, ICE{Candidate: ICECandidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		}})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info().Str("channel", n.cfg.Channel).Str("state", state.String()).Msg("peer connection state")
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			n.Close()
		}
	})

	n.sub = n.bus.Subscribe(n.cfg.Channel)

	if err := n.sendOffer(ctx); err != nil {
		n.Close()
		return err
	}

	go n.receiveLoop(ctx)
	go n.statsLoop(ctx)
	if n.cfg.SourceDone != nil {
		go func() {
			select {
			case <-n.cfg.SourceDone:
				log.Info().Str("channel", n.cfg.Channel).Msg("local media ended, tearing down")
				n.Close()
			case <-n.done:
			}
		}()
	}

	return nil
}

// Done is closed after full teardown.
func (n *Negotiator) Done() <-chan struct{} {
	return n.done
}

// Close tears down the peer connection and releases the channel
// subscription. Safe to call more than once.
func (n *Negotiator) Close() {
	n.closeOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
		}
		if n.sub != nil {
			n.bus.Unsubscribe(n.sub)
		}
		if n.pc != nil {
			n.pc.Close()
		}
		close(n.done)
	})
}

func (n *Negotiator) newPeerConnection() (*webrtc.PeerConnection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
	)

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{n.cfg.StunURL}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

func (n *Negotiator) sendOffer(ctx context.Context) error {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	msg := Offer{SDP: offer.SDP}
	n.mu.Lock()
	n.lastOffer = &msg
	n.mu.Unlock()

	n.publish(ctx, msg)
	log.Info().Str("channel", n.cfg.Channel).Msg("offer published")
	return nil
}

func (n *Negotiator) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.sub.Done:
			return
		case env := <-n.sub.Envelopes:
			if env.From == n.peerID {
				continue
			}
			n.handleEnvelope(ctx, env)
		}
	}
}

func (n *Negotiator) handleEnvelope(ctx context.Context, env Envelope) {
	msg, err := env.Decode()
	if err != nil {
		log.Warn().Err(err).Str("channel", n.cfg.Channel).Msg("rejecting signal message")
		return
	}

	switch m := msg.(type) {
	case Hello:
		n.handleHello(ctx)
	case Answer:
		n.handleAnswer(m)
	case ICE:
		n.handleICE(m)
	case Offer:
		// We are the offering side; a competing offer means both peers
		// believe they are the sharer. Keep ours.
		log.Warn().Str("channel", n.cfg.Channel).Msg("ignoring offer from remote peer")
	case Quality, ActiveSource, DrawPacket, CamPreview:
		if n.cfg.OnControl != nil {
			n.cfg.OnControl(m)
		}
	}
}

// handleHello re-broadcasts the retained offer for a peer that subscribed
// after the original send. No renegotiation: the exact same SDP goes out.
func (n *Negotiator) handleHello(ctx context.Context) {
	n.mu.Lock()
	offer := n.lastOffer
	n.mu.Unlock()

	if offer == nil {
		return
	}
	n.publish(ctx, *offer)
	log.Info().Str("channel", n.cfg.Channel).Msg("re-broadcast retained offer after hello")
}

func (n *Negotiator) handleAnswer(m Answer) {
	if err := n.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  m.SDP,
	}); err != nil {
		log.Error().Err(err).Str("channel", n.cfg.Channel).Msg("set remote description")
		return
	}

	n.mu.Lock()
	n.remoteSet = true
	pending := n.pendingICE
	n.pendingICE = nil
	n.mu.Unlock()

	for _, c := range pending {
		n.addCandidate(c)
	}
	log.Info().Str("channel", n.cfg.Channel).Msg("answer applied")
}

// handleICE applies a candidate immediately once the remote description is
// set; earlier arrivals are queued. Application order among candidates
// does not matter.
func (n *Negotiator) handleICE(m ICE) {
	n.mu.Lock()
	if !n.remoteSet {
		n.pendingICE = append(n.pendingICE, m.Candidate)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	n.addCandidate(m.Candidate)
}

func (n *Negotiator) addCandidate(c ICECandidate) {
	err := n.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	})
	if err != nil {
		log.Warn().Err(err).Str("channel", n.cfg.Channel).Msg("add ice candidate")
	}
}

func (n *Negotiator) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample := n.readStats(time.Now())
			level, changed := n.quality.Observe(sample)
			if changed {
				n.applyQuality(ctx, level)
			}
		}
	}
}

func (n *Negotiator) readStats(at time.Time) Sample {
	sample := Sample{At: at}

	for _, s := range n.pc.GetStats() {
		switch stat := s.(type) {
		case webrtc.OutboundRTPStreamStats:
			sample.BytesSent += stat.BytesSent
			sample.PacketsSent += uint64(stat.PacketsSent)
		case webrtc.RemoteInboundRTPStreamStats:
			if stat.FractionLost > sample.LossRatio {
				sample.LossRatio = stat.FractionLost
			}
			rtt := time.Duration(stat.RoundTripTime * float64(time.Second))
			if rtt > sample.RTT {
				sample.RTT = rtt
			}
		}
	}

	return sample
}

func (n *Negotiator) applyQuality(ctx context.Context, level Level) {
	params := level.Params()
	if n.cfg.Encoder != nil {
		n.cfg.Encoder.SetTargetBitrate(params.MaxBitrate)
		n.cfg.Encoder.SetMaxFramerate(params.MaxFramerate)
	}

	// Tell the viewer so its UI can reflect the change.
	n.publish(ctx, Quality{Level: level.String()})

	log.Info().
		Str("channel", n.cfg.Channel).
		Str("level", level.String()).
		Int("maxBitrate", params.MaxBitrate).
		Msg("quality level changed")
}

func (n *Negotiator) publish(ctx context.Context, msg Message) {
	env, err := NewEnvelope(n.peerID, msg)
	if err != nil {
		log.Error().Err(err).Msg("encode signal message")
		return
	}
	if err := n.bus.Publish(ctx, n.cfg.Channel, env); err != nil {
		log.Error().Err(err).Str("channel", n.cfg.Channel).Msg("publish signal message")
	}
}
