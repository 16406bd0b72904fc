package sim

import (
	"sync"
	"time"

	"github.com/mklimuk/isploader"
)

// Timer is a free-running 16-bit counter. A virtual timer advances by a
// fixed step every time it is read, which makes the bootloader loop
// deterministic. A real-time timer counts at a given rate of wall clock
// time.
type Timer struct {
	mu      sync.Mutex
	running bool
	count   uint16
	step    uint16

	rate  uint16
	since time.Time
	now   func() time.Time

	trace *Trace
}

var _ isploader.Timer = (*Timer)(nil)

// NewVirtualTimer returns a timer advancing step ticks per read.
func NewVirtualTimer(step uint16, trace *Trace) *Timer {
	return &Timer{step: step, trace: trace}
}

// NewRealTimer returns a timer counting ticksPerSecond ticks per second.
func NewRealTimer(ticksPerSecond uint16, trace *Trace) *Timer {
	return &Timer{rate: ticksPerSecond, now: time.Now, trace: trace}
}

func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.reset()
	t.trace.record(KindTimerStart)
}

func (t *Timer) Count() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.count
	}
	if t.now != nil {
		ticks := t.now().Sub(t.since).Seconds() * float64(t.rate)
		return uint16(uint64(ticks))
	}
	t.count += t.step
	return t.count
}

func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func (t *Timer) reset() {
	t.count = 0
	if t.now != nil {
		t.since = t.now()
	}
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.count = 0
	t.trace.record(KindTimerStop)
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
