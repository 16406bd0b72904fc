package boot

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/sim"
	"github.com/mklimuk/isploader/usbtiny"
)

// pollCounter counts Poll calls made on the wrapped engine.
type pollCounter struct {
	isploader.USBEngine
	mu    sync.Mutex
	polls int
}

func (p *pollCounter) Poll() {
	p.mu.Lock()
	p.polls++
	p.mu.Unlock()
	p.USBEngine.Poll()
}

func (p *pollCounter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

type transition struct {
	from, to State
}

func recordTransitions(list *[]transition) Option {
	return WithTransitionHook(func(from, to State) {
		*list = append(*list, transition{from, to})
	})
}

// fast options keep virtual time short: one second is 100 polls.
func fast() []Option {
	return []Option{
		WithTicksPerSecond(100),
		WithReconnectTicks(10),
		WithCleanExitTicks(50),
	}
}

// noTimeout makes the idle counter unreachable for tests driven by a
// concurrent host.
func noTimeout() Option {
	return WithTicksPerSecond(math.MaxUint16)
}

func runAsync(ctx context.Context, l *Loader) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("loader did not exit")
		return nil
	}
}

func TestLoader_TimeoutExit(t *testing.T) {
	b := sim.NewBoard(sim.ATmega328P)
	var transitions []transition
	l := New(b.Hardware(), append(fast(), WithIndicator(b.LED), recordTransitions(&transitions))...)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, ExitTimeout, l.ExitReason())
	assert.Equal(t, StateAppJump, l.State())
	assert.Equal(t, uint16(6), l.Session().Timeout())
	assert.Equal(t, []transition{
		{StateInit, StateEnumerating},
		{StateEnumerating, StateRunning},
		{StateRunning, StateExitRequested},
		{StateExitRequested, StateCleanup},
		{StateCleanup, StateAppJump},
	}, transitions)

	assert.Equal(t, []sim.Kind{
		sim.KindWatchdogOff,
		sim.KindBootVectors,
		sim.KindTimerStart,
		sim.KindUSBInit,
		sim.KindUSBDetach,
		sim.KindUSBConnect,
		sim.KindTimerStop,
		sim.KindUSBDisable,
		sim.KindAppVectors,
		sim.KindJump,
	}, b.Trace.Kinds(
		sim.KindWatchdogOff, sim.KindBootVectors, sim.KindTimerStart, sim.KindUSBInit,
		sim.KindUSBDetach, sim.KindUSBConnect, sim.KindTimerStop, sim.KindUSBDisable,
		sim.KindAppVectors, sim.KindJump,
	))
	assert.True(t, b.Platform.Jumped())
	assert.False(t, b.Platform.WatchdogEnabled())
	assert.Equal(t, sim.VectorsApp, b.Platform.Vectors())
	assert.False(t, b.Interrupts.Enabled())
	assert.False(t, b.Timer.Running())
	assert.False(t, b.USB.Connected())

	assert.Zero(t, b.Trace.Count(sim.KindIndicatorOn), "no host, no blinking")
	assert.False(t, b.LED.Lit())
}

func TestLoader_IdleCounterNeedsToExceedThreshold(t *testing.T) {
	tests := []uint8{0, 1, 3, math.MaxUint8}
	for _, timeout := range tests {
		b := sim.NewBoard(sim.ATmega328P, sim.WithTimerStep(50))
		l := New(b.Hardware(), append(fast(), WithTimeout(timeout))...)
		require.NoError(t, l.Run(context.Background()))
		assert.Equal(t, ExitTimeout, l.ExitReason())
		assert.Equal(t, uint16(timeout)+1, l.Session().Timeout())
		assert.True(t, b.Platform.Jumped())
	}
}

func TestLoader_RequestedExit(t *testing.T) {
	tests := []struct {
		name       string
		cleanExit  bool
		cleanPolls bool
	}{
		{"clean exit", true, true},
		{"immediate exit", false, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := sim.NewBoard(sim.ATmega328P)
			hw := b.Hardware()
			counter := &pollCounter{USBEngine: hw.USB}
			hw.USB = counter

			var atCleanup, atJump int
			l := New(hw, append(fast(),
				noTimeout(),
				WithIndicator(b.LED),
				WithCleanExit(test.cleanExit),
				WithTransitionHook(func(_, to State) {
					switch to {
					case StateCleanup:
						atCleanup = counter.count()
					case StateAppJump:
						atJump = counter.count()
					}
				}))...)

			done := runAsync(context.Background(), l)
			_, err := b.USB.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 0, 0, make([]byte, 8))
			require.NoError(t, err)
			_, err = b.USB.Control(usbtiny.RequestTypeIn, uint8(usbtiny.PowerDown), 0, 0, nil)
			require.NoError(t, err)
			require.NoError(t, waitRun(t, done))

			assert.Equal(t, ExitRequested, l.ExitReason())
			assert.True(t, b.Platform.Jumped())
			assert.Equal(t, test.cleanPolls, atJump > atCleanup)
			assert.False(t, b.LED.Lit())
			leds := b.Trace.Kinds(sim.KindIndicatorOn, sim.KindIndicatorOff)
			require.NotEmpty(t, leds)
			assert.Equal(t, sim.KindIndicatorOff, leds[len(leds)-1])

			_, err = b.USB.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 0, 0, make([]byte, 8))
			assert.ErrorIs(t, err, sim.ErrDetached)
		})
	}
}

func TestLoader_CancelCommitsPendingPage(t *testing.T) {
	b := sim.NewBoard(sim.ATmega328P)
	l := New(b.Hardware(), append(fast(), noTimeout())...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, l)

	n, err := b.USB.Control(usbtiny.RequestTypeOut, uint8(usbtiny.FlashWrite), 0, 0x0000, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	cancel()

	assert.ErrorIs(t, waitRun(t, done), context.Canceled)
	assert.Equal(t, ExitCancelled, l.ExitReason())
	assert.Equal(t, 1, b.Flash.Writes(0))
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, b.Flash.Bytes()[:4])
	assert.True(t, b.Platform.Jumped())
}

func TestLoader_ProgramAndReadBack(t *testing.T) {
	b := sim.NewBoard(sim.ATmega328P)
	l := New(b.Hardware(), append(fast(), noTimeout())...)
	done := runAsync(context.Background(), l)

	image := make([]byte, 200)
	for i := range image {
		image[i] = byte(i * 7)
	}
	for off := 0; off < len(image); off += 64 {
		end := min(off+64, len(image))
		n, err := b.USB.Control(usbtiny.RequestTypeOut, uint8(usbtiny.FlashWrite), 0, uint16(off), image[off:end])
		require.NoError(t, err)
		require.Equal(t, end-off, n)
	}

	got := make([]byte, len(image))
	n, err := b.USB.Control(usbtiny.RequestTypeIn, uint8(usbtiny.FlashRead), 0, 0, got)
	require.NoError(t, err)
	require.Equal(t, len(image), n)
	assert.Equal(t, image, got)

	_, err = b.USB.Control(usbtiny.RequestTypeOut, uint8(usbtiny.PowerDown), 0, 0, nil)
	require.NoError(t, err)
	require.NoError(t, waitRun(t, done))

	assert.Equal(t, 1, b.Flash.Erases(0x0000))
	assert.Equal(t, 1, b.Flash.Erases(0x0080))
	assert.Equal(t, image, b.Flash.Bytes()[:len(image)])
}
