package sim

import (
	"time"

	"github.com/mklimuk/isploader"
)

// Board wires the simulated components of one chip to a shared trace.
type Board struct {
	Profile    Profile
	Flash      *Flash
	EEPROM     *EEPROM
	Signature  *SignatureRow
	Interrupts *Interrupts
	Timer      *Timer
	Platform   *Platform
	USB        *Engine
	LED        *Indicator
	Trace      *Trace
}

type boardConfig struct {
	timerStep       uint16
	ticksPerSecond  uint16
	realTime        bool
	busyLatency     int
	transferTimeout time.Duration
	pollWait        time.Duration
}

type BoardOption func(*boardConfig)

// WithTimerStep makes the timer advance step ticks per read.
func WithTimerStep(step uint16) BoardOption {
	return func(c *boardConfig) {
		c.timerStep = step
		c.realTime = false
	}
}

// WithRealTime makes the timer follow the wall clock at ticksPerSecond
// and lets Poll wait for the host.
func WithRealTime(ticksPerSecond uint16) BoardOption {
	return func(c *boardConfig) {
		c.ticksPerSecond = ticksPerSecond
		c.realTime = true
		if c.pollWait == 0 {
			c.pollWait = time.Millisecond
		}
	}
}

// WithBusyLatency sets how many polls an erase or page write keeps the
// self-programming unit busy.
func WithBusyLatency(polls int) BoardOption {
	return func(c *boardConfig) {
		c.busyLatency = polls
	}
}

func WithTransferTimeout(d time.Duration) BoardOption {
	return func(c *boardConfig) {
		c.transferTimeout = d
	}
}

func WithPollWait(d time.Duration) BoardOption {
	return func(c *boardConfig) {
		c.pollWait = d
	}
}

func NewBoard(p Profile, opts ...BoardOption) *Board {
	cfg := boardConfig{
		timerStep:       1,
		busyLatency:     3,
		transferTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	trace := &Trace{}
	timer := NewVirtualTimer(cfg.timerStep, trace)
	if cfg.realTime {
		timer = NewRealTimer(cfg.ticksPerSecond, trace)
	}
	return &Board{
		Profile:    p,
		Flash:      NewFlash(p.FlashSize, p.PageSize, cfg.busyLatency, trace),
		EEPROM:     NewEEPROM(p.EEPROMSize, trace),
		Signature:  NewSignatureRow(p),
		Interrupts: &Interrupts{trace: trace},
		Timer:      timer,
		Platform:   &Platform{watchdog: true, trace: trace},
		USB:        NewEngine(cfg.transferTimeout, cfg.pollWait, trace),
		LED:        &Indicator{trace: trace},
		Trace:      trace,
	}
}

// Hardware returns the board as seen by the bootloader.
func (b *Board) Hardware() isploader.Hardware {
	return isploader.Hardware{
		USB:        b.USB,
		Flash:      b.Flash,
		Code:       b.Flash,
		EEPROM:     b.EEPROM,
		Signature:  b.Signature,
		Interrupts: b.Interrupts,
		Timer:      b.Timer,
		Platform:   b.Platform,
	}
}
