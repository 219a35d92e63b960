package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var qualityEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// goodDelta produces a bitrate above 80% of the high target over one
// 2-second interval.
const goodDelta = 700_000 // 2.8 Mbps

type sampleFeed struct {
	c     *QualityController
	bytes uint64
	at    time.Time
}

func newFeed(level Level) *sampleFeed {
	f := &sampleFeed{c: NewQualityController(level), at: qualityEpoch}
	// First sample only establishes the byte/time baseline.
	f.c.Observe(Sample{At: f.at, BytesSent: 0})
	return f
}

func (f *sampleFeed) next(deltaBytes uint64, loss float64, rtt time.Duration) (Level, bool) {
	f.at = f.at.Add(SampleInterval)
	f.bytes += deltaBytes
	return f.c.Observe(Sample{At: f.at, BytesSent: f.bytes, LossRatio: loss, RTT: rtt})
}

func (f *sampleFeed) bad() (Level, bool) {
	return f.next(goodDelta, 0.05, 100*time.Millisecond)
}

func (f *sampleFeed) good() (Level, bool) {
	return f.next(goodDelta, 0.0, 100*time.Millisecond)
}

// neutral keeps the bitrate healthy but parks the RTT between the good and
// bad thresholds, so the sample lands in neither band at any level.
func (f *sampleFeed) neutral() (Level, bool) {
	return f.next(goodDelta, 0.0, 300*time.Millisecond)
}

func TestQualityDowngrade(t *testing.T) {
	t.Run("two consecutive bad samples drop one level", func(t *testing.T) {
		f := newFeed(LevelHigh)

		level, changed := f.bad()
		assert.False(t, changed)
		assert.Equal(t, LevelHigh, level)

		level, changed = f.bad()
		assert.True(t, changed)
		assert.Equal(t, LevelMedium, level)
	})

	t.Run("cooldown blocks a second drop for 8 seconds", func(t *testing.T) {
		f := newFeed(LevelHigh)
		f.bad()
		_, changed := f.bad()
		require.True(t, changed)
		changedAt := f.at

		// Bad samples keep coming, but nothing may change until the
		// cooldown window has passed.
		for f.at.Sub(changedAt) < changeCooldown-SampleInterval {
			level, changed := f.bad()
			assert.False(t, changed, "change during cooldown at %s", f.at)
			assert.Equal(t, LevelMedium, level)
		}

		level, changed := f.bad()
		assert.True(t, changed, "expected drop once cooldown elapsed")
		assert.Equal(t, LevelLow, level)
	})

	t.Run("never drops below low", func(t *testing.T) {
		f := newFeed(LevelLow)
		for i := 0; i < 10; i++ {
			level, changed := f.bad()
			assert.False(t, changed)
			assert.Equal(t, LevelLow, level)
		}
	})

	t.Run("moves one step at a time", func(t *testing.T) {
		f := newFeed(LevelHigh)
		f.bad()
		level, _ := f.bad()
		assert.Equal(t, LevelMedium, level, "must not skip straight to low")
	})
}

func TestQualityUpgrade(t *testing.T) {
	t.Run("five consecutive good samples raise one level", func(t *testing.T) {
		f := newFeed(LevelMedium)

		for i := 0; i < 4; i++ {
			_, changed := f.good()
			assert.False(t, changed, "sample %d", i+1)
		}

		level, changed := f.good()
		assert.True(t, changed)
		assert.Equal(t, LevelHigh, level)
	})

	t.Run("never rises above high", func(t *testing.T) {
		f := newFeed(LevelHigh)
		for i := 0; i < 10; i++ {
			level, changed := f.good()
			assert.False(t, changed)
			assert.Equal(t, LevelHigh, level)
		}
	})
}

func TestQualityNeutralDecay(t *testing.T) {
	t.Run("neutral sample erodes a bad streak instead of resetting it", func(t *testing.T) {
		f := newFeed(LevelHigh)

		f.bad()     // bad streak 1
		f.neutral() // bad streak back to 0
		f.bad()     // bad streak 1
		level, changed := f.bad()
		assert.True(t, changed)
		assert.Equal(t, LevelMedium, level)
	})

	t.Run("interleaved neutrals delay an upgrade without cancelling it", func(t *testing.T) {
		f := newFeed(LevelLow)

		// good, good, neutral leaves the streak at 1; three more goods
		// reach 4, one more reaches 5.
		f.good()
		f.good()
		f.neutral()
		f.good()
		f.good()
		f.good()
		_, changed := f.good()
		assert.True(t, changed)
		assert.Equal(t, LevelMedium, f.c.Level())
	})
}

func TestQualityLevelParams(t *testing.T) {
	assert.Less(t, LevelLow.Params().MaxBitrate, LevelMedium.Params().MaxBitrate)
	assert.Less(t, LevelMedium.Params().MaxBitrate, LevelHigh.Params().MaxBitrate)
	assert.Equal(t, "low", LevelLow.String())
	assert.Equal(t, "medium", LevelMedium.String())
	assert.Equal(t, "high", LevelHigh.String())
}
