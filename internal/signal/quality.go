package signal

import (
	"time"
)

// Level is the 3-step quality ladder applied to the outbound encoding.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// EncodingParams are the sender-side caps for one quality level.
type EncodingParams struct {
	MaxBitrate   int     // bits per second
	MaxFramerate float64 // frames per second
}

var levelParams = map[Level]EncodingParams{
	LevelLow:    {MaxBitrate: 400_000, MaxFramerate: 10},
	LevelMedium: {MaxBitrate: 1_200_000, MaxFramerate: 20},
	LevelHigh:   {MaxBitrate: 2_500_000, MaxFramerate: 30},
}

// Params returns the encoding caps for a level.
func (l Level) Params() EncodingParams {
	return levelParams[l]
}

// Sample is one reading of the outbound stream, taken at a fixed interval.
type Sample struct {
	At          time.Time
	BytesSent   uint64
	PacketsSent uint64
	// LossRatio is the remote-reported fraction of packets lost, 0..1.
	LossRatio float64
	RTT       time.Duration
}

// Link classification thresholds and decision tuning.
const (
	SampleInterval = 2 * time.Second

	badLossRatio  = 0.03
	badRTT        = 450 * time.Millisecond
	badBitratePct = 0.55

	goodLossRatio  = 0.01
	goodRTT        = 250 * time.Millisecond
	goodBitratePct = 0.80

	badSamplesToDowngrade = 2
	goodSamplesToUpgrade  = 5

	changeCooldown = 8 * time.Second
)

// QualityController decides when to step the outbound quality up or down.
// Consecutive-good/bad counters decay by one on neutral samples instead of
// resetting, so a single noisy reading neither triggers nor cancels a
// decision. Changes move exactly one level and are separated by a cooldown.
type QualityController struct {
	level Level

	prevBytes  uint64
	prevAt     time.Time
	havePrev   bool
	goodStreak int
	badStreak  int
	lastChange time.Time
}

func NewQualityController(initial Level) *QualityController {
	return &QualityController{level: initial}
}

func (c *QualityController) Level() Level {
	return c.level
}

// Observe feeds one sample. It returns the current level and whether this
// sample changed it.
func (c *QualityController) Observe(s Sample) (Level, bool) {
	if !c.havePrev {
		c.prevBytes = s.BytesSent
		c.prevAt = s.At
		c.havePrev = true
		return c.level, false
	}

	elapsed := s.At.Sub(c.prevAt)
	if elapsed <= 0 {
		return c.level, false
	}

	bitrate := float64(s.BytesSent-c.prevBytes) * 8 / elapsed.Seconds()
	c.prevBytes = s.BytesSent
	c.prevAt = s.At

	target := float64(c.level.Params().MaxBitrate)

	switch {
	case s.LossRatio >= badLossRatio || s.RTT >= badRTT || bitrate < badBitratePct*target:
		c.badStreak++
		if c.goodStreak > 0 {
			c.goodStreak--
		}
	case s.LossRatio <= goodLossRatio && s.RTT <= goodRTT && bitrate > goodBitratePct*target:
		c.goodStreak++
		if c.badStreak > 0 {
			c.badStreak--
		}
	default:
		// Neutral samples erode both streaks rather than resetting them.
		if c.badStreak > 0 {
			c.badStreak--
		}
		if c.goodStreak > 0 {
			c.goodStreak--
		}
	}

	if !c.lastChange.IsZero() && s.At.Sub(c.lastChange) < changeCooldown {
		return c.level, false
	}

	if c.badStreak >= badSamplesToDowngrade && c.level > LevelLow {
		c.level--
		c.resetStreaks(s.At)
		return c.level, true
	}

	if c.goodStreak >= goodSamplesToUpgrade && c.level < LevelHigh {
		c.level++
		c.resetStreaks(s.At)
		return c.level, true
	}

	return c.level, false
}

func (c *QualityController) resetStreaks(at time.Time) {
	c.goodStreak = 0
	c.badStreak = 0
	c.lastChange = at
}
