// Package indicator provides activity LEDs for the bootloader: a periph
// GPIO pin, a gobot LED driver or nothing at all.
package indicator

import (
	"errors"
	"fmt"
	"strings"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/isploader"
)

var (
	ErrPinNotFound = errors.New("indicator: pin not found")
	ErrInvalidSpec = errors.New("indicator: invalid led spec")
)

// Noop is an indicator without an LED.
type Noop struct{}

var _ isploader.Indicator = Noop{}

func (Noop) On() error  { return nil }
func (Noop) Off() error { return nil }

// Pin drives an LED wired to a periph GPIO pin.
type Pin struct {
	pin       pgpio.PinOut
	activeLow bool
}

var _ isploader.Indicator = (*Pin)(nil)

type PinOption func(*Pin)

// ActiveLow inverts the pin level, for LEDs wired to the supply.
func ActiveLow() PinOption {
	return func(p *Pin) {
		p.activeLow = true
	}
}

func NewPin(pin pgpio.PinOut, opts ...PinOption) *Pin {
	p := &Pin{pin: pin}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenPin initializes the host drivers and looks the pin up by name.
func OpenPin(name string, opts ...PinOption) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("indicator: could not init host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return NewPin(p, opts...), nil
}

func (p *Pin) On() error {
	return p.set(true)
}

func (p *Pin) Off() error {
	return p.set(false)
}

func (p *Pin) set(on bool) error {
	level := pgpio.Level(on != p.activeLow)
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("indicator: could not drive %s: %w", p.pin, err)
	}
	return nil
}

// Driver is an LED driven through gobot.
type Driver struct {
	led *gpio.LedDriver
}

var _ isploader.Indicator = (*Driver)(nil)

// NewDriver starts the LED driver.
func NewDriver(led *gpio.LedDriver) (*Driver, error) {
	if err := led.Start(); err != nil {
		return nil, fmt.Errorf("indicator: could not start led driver: %w", err)
	}
	return &Driver{led: led}, nil
}

// OpenNanoPi returns an LED on a NanoPi NEO header pin.
func OpenNanoPi(pin string) (*Driver, error) {
	a := nanopi.NewNeoAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("indicator: could not connect nanopi adaptor: %w", err)
	}
	return NewDriver(gpio.NewLedDriver(a, pin))
}

func (d *Driver) On() error {
	return d.led.On()
}

func (d *Driver) Off() error {
	return d.led.Off()
}

// Halt stops the driver.
func (d *Driver) Halt() error {
	return d.led.Halt()
}

// Open creates the indicator described by spec:
//
//	""              no LED
//	gpio:NAME       periph pin, "gpio:!NAME" when active low
//	nanopi:PIN      gobot LED on a NanoPi NEO header pin
func Open(spec string) (isploader.Indicator, error) {
	if spec == "" || spec == "none" {
		return Noop{}, nil
	}
	kind, arg, ok := strings.Cut(spec, ":")
	if !ok || arg == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}
	switch kind {
	case "gpio":
		if name, low := strings.CutPrefix(arg, "!"); low {
			return OpenPin(name, ActiveLow())
		}
		return OpenPin(arg)
	case "nanopi":
		return OpenNanoPi(arg)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}
