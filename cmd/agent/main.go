package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/redis"
	"github.com/famlink/assist-server-go/internal/signal"
)

// agentConfig is the sharer agent's own environment. It talks only to
// redis; the coordinator owns postgres.
type agentConfig struct {
	RedisURL  string `env:"REDIS_URL,required"`
	Code      string `env:"SESSION_CODE,required"`
	VideoFile string `env:"VIDEO_FILE,required"`
	StunURL   string `env:"STUN_URL" envDefault:"stun:stun.l.google.com:19302"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// The agent is the headless sharing side of a session: it publishes an
// offer on the session's signaling channel, answers hellos with a
// re-broadcast, and streams a VP8 IVF file as its media source.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	var cfg agentConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse agent config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	broker := signal.NewBroker(redisClient)
	defer broker.Close()

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "screen",
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create video track")
	}

	sourceDone := make(chan struct{})

	negotiator := signal.NewNegotiator(broker, signal.NegotiatorConfig{
		Channel:    redis.SignalChannel(cfg.Code),
		StunURL:    cfg.StunURL,
		Track:      track,
		SourceDone: sourceDone,
		OnControl: func(msg signal.Message) {
			log.Debug().Str("type", string(msg.SignalType())).Msg("control message")
		},
	})

	ctx := context.Background()
	if err := negotiator.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start negotiator")
	}

	go func() {
		defer close(sourceDone)
		if err := streamIVF(cfg.VideoFile, track, negotiator.Done()); err != nil {
			log.Error().Err(err).Msg("media stream ended with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down agent")
	case <-negotiator.Done():
		log.Info().Msg("negotiation finished")
	}
	negotiator.Close()
}

// streamIVF feeds IVF frames into the track at the file's own frame rate
// until the file ends or the negotiation tears down.
func streamIVF(path string, track *webrtc.TrackLocalStaticSample, done <-chan struct{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open video file: %w", err)
	}
	defer file.Close()

	ivf, header, err := ivfreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("read ivf header: %w", err)
	}

	frameDuration := time.Millisecond * time.Duration(float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator)*1000)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			frame, _, err := ivf.ParseNextFrame()
			if err != nil {
				// EOF included: the capture source is finished.
				return nil
			}
			if err := track.WriteSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
		}
	}
}
