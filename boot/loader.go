package boot

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/mklimuk/isploader"
)

// Loader runs the bootloader lifecycle: it enumerates on the bus, serves
// requests until the host powers the target down or goes silent, then
// hands the chip over to the application.
type Loader struct {
	hw   isploader.Hardware
	opts Options
	log  *slog.Logger

	session *Session
	disp    *Dispatcher

	state  atomic.Int32
	reason atomic.Int32

	ledSet bool
	ledOn  bool
}

func New(hw isploader.Hardware, opts ...Option) *Loader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	s := &Session{}
	return &Loader{
		hw:      hw,
		opts:    o,
		log:     o.Logger,
		session: s,
		disp:    newDispatcher(s, hw, o),
	}
}

// State returns the current lifecycle state. It is safe to call from any
// goroutine.
func (l *Loader) State() State { return State(l.state.Load()) }

func (l *Loader) ExitReason() ExitReason { return ExitReason(l.reason.Load()) }

// Session returns the bootloader state. It must not be read while Run is
// polling.
func (l *Loader) Session() *Session { return l.session }

func (l *Loader) Dispatcher() *Dispatcher { return l.disp }

// Run executes the whole lifecycle and ends with the jump to the
// application. Cancelling ctx behaves like an exit request: the loader
// still cleans up and jumps, then Run returns ctx.Err().
func (l *Loader) Run(ctx context.Context) error {
	l.init(ctx)
	l.serve(ctx)
	l.cleanup()
	l.jump()
	if l.ExitReason() == ExitCancelled {
		return ctx.Err()
	}
	return nil
}

func (l *Loader) init(ctx context.Context) {
	hw := l.hw
	hw.Platform.DisableWatchdog()
	hw.Platform.BootVectors()
	hw.Timer.Start()
	hw.USB.Init(l.disp)

	l.transition(StateEnumerating)
	hw.USB.Disconnect()
	for hw.Timer.Count() < l.opts.ReconnectTicks && ctx.Err() == nil {
	}
	hw.USB.Connect()
	hw.Interrupts.Enable()
	l.transition(StateRunning)
}

func (l *Loader) serve(ctx context.Context) {
	hw, s := l.hw, l.session
	for {
		hw.USB.Poll()

		switch {
		case s.timeout > uint16(l.opts.Timeout):
			l.reason.Store(int32(ExitTimeout))
		case s.exit:
			l.reason.Store(int32(ExitRequested))
		case ctx.Err() != nil:
			l.reason.Store(int32(ExitCancelled))
		}
		if l.ExitReason() != ExitNone {
			break
		}

		t := hw.Timer.Count()
		if t > l.opts.TicksPerSecond {
			s.timeout++
			hw.Timer.Reset()
		}
		if s.active {
			l.setLED(t&l.opts.BlinkMask == 0)
		}
	}
	l.transition(StateExitRequested)
	l.log.Info("leaving bootloader", "reason", l.ExitReason(), "timeout", s.timeout)
}

func (l *Loader) cleanup() {
	hw, s := l.hw, l.session
	l.transition(StateCleanup)
	l.setLED(false)

	if l.opts.CleanExit && s.exit {
		hw.Timer.Reset()
		for hw.Timer.Count() < l.opts.CleanExitTicks {
			hw.USB.Poll()
		}
	}
	l.disp.pw.Finalize()

	hw.Timer.Stop()
	hw.USB.Disable()
	hw.Platform.AppVectors()
}

func (l *Loader) jump() {
	l.transition(StateAppJump)
	l.hw.Interrupts.Disable()
	l.hw.Platform.JumpToApp()
}

func (l *Loader) transition(to State) {
	from := State(l.state.Swap(int32(to)))
	l.log.Debug("bootloader state", "from", from, "to", to)
	if l.opts.OnTransition != nil {
		l.opts.OnTransition(from, to)
	}
}

// setLED drives the indicator on change only.
func (l *Loader) setLED(on bool) {
	if l.opts.Indicator == nil || (l.ledSet && l.ledOn == on) {
		return
	}
	l.ledSet, l.ledOn = true, on
	var err error
	if on {
		err = l.opts.Indicator.On()
	} else {
		err = l.opts.Indicator.Off()
	}
	if err != nil {
		l.log.Warn("could not drive activity indicator", "err", err)
	}
}
