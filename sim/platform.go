package sim

import (
	"sync"

	"github.com/mklimuk/isploader"
)

// Interrupts is the global interrupt enable flag.
type Interrupts struct {
	mu      sync.Mutex
	enabled bool
	trace   *Trace
}

var _ isploader.Interrupts = (*Interrupts)(nil)

func (i *Interrupts) Disable() {
	i.mu.Lock()
	i.enabled = false
	i.mu.Unlock()
	i.trace.record(KindIRQOff)
}

func (i *Interrupts) Enable() {
	i.mu.Lock()
	i.enabled = true
	i.mu.Unlock()
	i.trace.record(KindIRQOn)
}

func (i *Interrupts) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// Vectors is where the interrupt vector table points.
type Vectors uint8

const (
	VectorsApp Vectors = iota
	VectorsBoot
)

func (v Vectors) String() string {
	if v == VectorsBoot {
		return "boot"
	}
	return "app"
}

// Platform records watchdog, vector table and reset entry handling. The
// jump to the application returns, leaving Jumped set.
type Platform struct {
	mu       sync.Mutex
	watchdog bool
	vectors  Vectors
	jumped   bool
	trace    *Trace
}

var _ isploader.Platform = (*Platform)(nil)

func (p *Platform) DisableWatchdog() {
	p.mu.Lock()
	p.watchdog = false
	p.mu.Unlock()
	p.trace.record(KindWatchdogOff)
}

func (p *Platform) BootVectors() {
	p.mu.Lock()
	p.vectors = VectorsBoot
	p.mu.Unlock()
	p.trace.record(KindBootVectors)
}

func (p *Platform) AppVectors() {
	p.mu.Lock()
	p.vectors = VectorsApp
	p.mu.Unlock()
	p.trace.record(KindAppVectors)
}

func (p *Platform) JumpToApp() {
	p.mu.Lock()
	p.jumped = true
	p.mu.Unlock()
	p.trace.record(KindJump)
}

func (p *Platform) WatchdogEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchdog
}

func (p *Platform) Vectors() Vectors {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vectors
}

func (p *Platform) Jumped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jumped
}

// Indicator is an LED that records its state changes.
type Indicator struct {
	mu    sync.Mutex
	on    bool
	trace *Trace
}

var _ isploader.Indicator = (*Indicator)(nil)

func (l *Indicator) On() error {
	l.mu.Lock()
	l.on = true
	l.mu.Unlock()
	l.trace.record(KindIndicatorOn)
	return nil
}

func (l *Indicator) Off() error {
	l.mu.Lock()
	l.on = false
	l.mu.Unlock()
	l.trace.record(KindIndicatorOff)
	return nil
}

func (l *Indicator) Lit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
