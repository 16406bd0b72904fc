package indicator

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2/drivers/gpio"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestPin(t *testing.T) {
	tests := []struct {
		name      string
		opts      []PinOption
		lit, dark pgpio.Level
	}{
		{"active high", nil, pgpio.High, pgpio.Low},
		{"active low", []PinOption{ActiveLow()}, pgpio.Low, pgpio.High},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pin := &gpiotest.Pin{N: "LED"}
			led := NewPin(pin, test.opts...)
			require.NoError(t, led.On())
			assert.Equal(t, test.lit, pin.Read())
			require.NoError(t, led.Off())
			assert.Equal(t, test.dark, pin.Read())
		})
	}
}

// fakeWriter is a gobot connection recording digital writes.
type fakeWriter struct {
	mu     sync.Mutex
	name   string
	levels []byte
	err    error
}

func (f *fakeWriter) Name() string     { return f.name }
func (f *fakeWriter) SetName(n string) { f.name = n }
func (f *fakeWriter) Connect() error   { return nil }
func (f *fakeWriter) Finalize() error  { return nil }

func (f *fakeWriter) DigitalWrite(pin string, level byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)
	return nil
}

func TestDriver(t *testing.T) {
	w := &fakeWriter{}
	led, err := NewDriver(gpio.NewLedDriver(w, "7"))
	require.NoError(t, err)
	require.NoError(t, led.On())
	require.NoError(t, led.Off())
	assert.Equal(t, []byte{1, 0}, w.levels)
}

func TestDriver_Error(t *testing.T) {
	w := &fakeWriter{err: errors.New("no export")}
	led, err := NewDriver(gpio.NewLedDriver(w, "7"))
	require.NoError(t, err)
	assert.Error(t, led.On())
}

func TestOpen_Invalid(t *testing.T) {
	for _, spec := range []string{"gpio", "gpio:", "serial:COM1"} {
		_, err := Open(spec)
		assert.ErrorIs(t, err, ErrInvalidSpec, spec)
	}
}

func TestOpen_None(t *testing.T) {
	for _, spec := range []string{"", "none"} {
		led, err := Open(spec)
		require.NoError(t, err)
		assert.Equal(t, Noop{}, led)
	}
}
