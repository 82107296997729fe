package lag

import (
	"fmt"
	"time"
)

const (
	smallSpikeFactor = 1.65
	bigSpikeFactor   = 2.0
)

// Spike is the classification of a single measured response delay.
type Spike int

const (
	SpikeNone Spike = iota
	SpikeSmall
	SpikeBig
)

func (s Spike) String() string {
	switch s {
	case SpikeSmall:
		return "small"
	case SpikeBig:
		return "big"
	default:
		return "none"
	}
}

// Classifier counts lag spikes caused by a single user. Thresholds are derived
// from the nominal duration of one frame at the user's update rate.
// A Classifier is not safe for concurrent use; its owner serializes access.
type Classifier struct {
	smallThreshold time.Duration
	bigThreshold   time.Duration

	smallSpikes int64
	bigSpikes   int64
}

// Arm recomputes the thresholds for the given update rate. A non-positive rate
// disarms the classifier.
func (c *Classifier) Arm(updatesPerSecond int) {
	if updatesPerSecond <= 0 {
		c.smallThreshold = 0
		c.bigThreshold = 0
		return
	}

	frame := time.Second / time.Duration(updatesPerSecond)
	c.smallThreshold = time.Duration(float64(frame) * smallSpikeFactor)
	c.bigThreshold = time.Duration(float64(frame) * bigSpikeFactor)
}

// Armed reports whether thresholds have been computed.
func (c *Classifier) Armed() bool {
	return c.bigThreshold > 0
}

// Thresholds returns the current small and big spike thresholds.
func (c *Classifier) Thresholds() (small, big time.Duration) {
	return c.smallThreshold, c.bigThreshold
}

// Record classifies delay and bumps the matching counter. An unarmed
// classifier records nothing.
func (c *Classifier) Record(delay time.Duration) Spike {
	if !c.Armed() {
		return SpikeNone
	}

	switch {
	case delay < c.smallThreshold:
		return SpikeNone
	case delay < c.bigThreshold:
		c.smallSpikes++
		return SpikeSmall
	default:
		c.bigSpikes++
		return SpikeBig
	}
}

// Counts returns the cumulative small and big spike counters.
func (c *Classifier) Counts() (small, big int64) {
	return c.smallSpikes, c.bigSpikes
}

// Reset clears the counters but keeps the thresholds.
func (c *Classifier) Reset() {
	c.smallSpikes = 0
	c.bigSpikes = 0
}

func (c *Classifier) String() string {
	return fmt.Sprintf("%d (small), %d (big)", c.smallSpikes, c.bigSpikes)
}
