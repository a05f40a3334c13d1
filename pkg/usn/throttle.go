package usn

import (
	"time"

	"github.com/VividCortex/ewma"
)

// cpuBusyThreshold is the smoothed CPU utilization (0-100) above which
// the throttle backs off polling.
const cpuBusyThreshold = 80.0

// backoffMultiplier is how much longer the poll interval gets once the
// threshold is crossed.
const backoffMultiplier = 4

// AdaptiveThrottle widens the USN poll interval under CPU pressure so the
// monitor doesn't compete with foreground work. It smooths successive CPU
// samples with an EWMA to avoid reacting to single noisy spikes.
type AdaptiveThrottle struct {
	normal  time.Duration
	avg     ewma.MovingAverage
	sampler cpuSampler
}

type cpuSampler func() (float64, error)

// NewAdaptiveThrottle builds a throttle with the given normal poll
// interval. A normal interval of zero defaults to 30s, matching the
// source's default.
func NewAdaptiveThrottle(normal time.Duration) *AdaptiveThrottle {
	if normal <= 0 {
		normal = 30 * time.Second
	}
	return &AdaptiveThrottle{
		normal:  normal,
		avg:     ewma.NewMovingAverage(),
		sampler: sampleCPUUtilization,
	}
}

// Interval samples current CPU utilization, folds it into the moving
// average, and returns the interval the caller should sleep before its
// next poll.
func (t *AdaptiveThrottle) Interval() time.Duration {
	busy, err := t.sampler()
	if err != nil {
		return t.normal
	}
	t.avg.Add(busy)
	if t.avg.Value() > cpuBusyThreshold {
		return t.normal * backoffMultiplier
	}
	return t.normal
}
