package transfer

import "time"

const (
	// progressInterval bounds how often byte-level updates are forwarded.
	progressInterval = 100 * time.Millisecond
	// throughputAlpha weights the newest instantaneous sample in the
	// exponential moving average.
	throughputAlpha = 0.3
)

// progressGauge tracks byte and timing state for one item. Every chunk feeds
// the throughput estimate; forwarding to the output stream is gated to once
// per interval, or immediately at 100% completion, so fast local copies do
// not flood the stream while the rate stays accurate.
type progressGauge struct {
	now func() time.Time

	lastEmit   time.Time
	lastSample time.Time
	lastBytes  int64
	smoothed   float64
	seeded     bool
}

func newProgressGauge(now func() time.Time) *progressGauge {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &progressGauge{
		now:        now,
		lastEmit:   start,
		lastSample: start,
	}
}

// observe folds one cumulative sample into the gauge. It returns the smoothed
// bytes-per-second estimate and whether this sample should be forwarded.
func (g *progressGauge) observe(bytesCopied, bytesTotal int64) (float64, bool) {
	current := g.now()

	if delta := current.Sub(g.lastSample); delta > 0 {
		instant := float64(bytesCopied-g.lastBytes) / delta.Seconds()
		if g.seeded {
			g.smoothed = throughputAlpha*instant + (1-throughputAlpha)*g.smoothed
		} else {
			g.smoothed = instant
			g.seeded = true
		}
		g.lastSample = current
		g.lastBytes = bytesCopied
	}

	complete := bytesCopied >= bytesTotal
	if !complete && current.Sub(g.lastEmit) < progressInterval {
		return g.smoothed, false
	}
	g.lastEmit = current
	return g.smoothed, true
}
