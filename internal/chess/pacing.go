package chess

import (
	"math/rand"
	"sync"
	"time"
)

// Pacer draws the human-like pause taken before asking the engine to move.
type Pacer struct {
	min, max time.Duration

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewPacer swaps min and max when given in the wrong order.
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		min, max = max, min
	}
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Pacer{
		min:  min,
		max:  max,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Pacer) SetRandomSeed(seed int64) {
	p.randMu.Lock()
	p.rand = rand.New(rand.NewSource(seed))
	p.randMu.Unlock()
}

// Delay is uniform over [min, max] at millisecond granularity.
func (p *Pacer) Delay() time.Duration {
	lo := p.min.Milliseconds()
	hi := p.max.Milliseconds()
	p.randMu.Lock()
	ms := lo + p.rand.Int63n(hi-lo+1)
	p.randMu.Unlock()
	return time.Duration(ms) * time.Millisecond
}

func (p *Pacer) Bounds() (time.Duration, time.Duration) { return p.min, p.max }
