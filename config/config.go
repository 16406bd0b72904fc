package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/isploader/boot"
)

// Version is set at build time.
var Version = "dev"

// prescaler divides the CPU clock for the free-running timer.
const prescaler = 1024

var ErrClock = errors.New("config: clock out of range for the 16-bit timer")

// Frequency is a clock rate written as "16MHz" or "12000000Hz".
type Frequency struct {
	physic.Frequency
}

func (f *Frequency) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if err := f.Set(s); err != nil {
		return fmt.Errorf("config: invalid frequency %q: %w", s, err)
	}
	return nil
}

func (f Frequency) MarshalYAML() (any, error) {
	return f.String(), nil
}

// Config describes a board running the bootloader.
type Config struct {
	Chip  string    `yaml:"chip"`
	Clock Frequency `yaml:"clock"`
	// Timeout is the number of idle seconds before the application starts.
	Timeout     uint8         `yaml:"timeout"`
	RequestExit bool          `yaml:"request_exit"`
	CleanExit   bool          `yaml:"clean_exit"`
	Features    boot.Features `yaml:"features"`
	// LED selects the activity indicator, see package indicator.
	LED string `yaml:"led,omitempty"`
}

// Default returns the Trinket Pro configuration.
func Default() Config {
	return Config{
		Chip:        "atmega328p",
		Clock:       Frequency{16 * physic.MegaHertz},
		Timeout:     5,
		RequestExit: true,
		CleanExit:   true,
		Features:    boot.AllFeatures(),
	}
}

// Load reads a YAML configuration file. Missing keys keep their default
// values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: could not open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: could not decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	chip, err := LookupChip(c.Chip)
	if err != nil {
		return err
	}
	if chip.PageSize < 2 || chip.PageSize&(chip.PageSize-1) != 0 {
		return fmt.Errorf("config: %s: page size %d is not a power of two", chip.Name, chip.PageSize)
	}
	if !chip.Addressable() {
		return fmt.Errorf("%w: %s has %d bytes", ErrAddressWidth, chip.Name, chip.FlashSize)
	}
	if ticks := c.Clock.Frequency / (prescaler * physic.Hertz); ticks < 1 || ticks > 0xFFFF {
		return fmt.Errorf("%w: %s", ErrClock, c.Clock)
	}
	return nil
}

// TicksPerSecond is the timer rate derived from the clock.
func (c Config) TicksPerSecond() uint16 {
	return uint16(c.Clock.Frequency / (prescaler * physic.Hertz))
}

// ChipInfo returns the configured chip.
func (c Config) ChipInfo() (Chip, error) {
	return LookupChip(c.Chip)
}

// Options translates the configuration into bootloader options.
func (c Config) Options() ([]boot.Option, error) {
	chip, err := LookupChip(c.Chip)
	if err != nil {
		return nil, err
	}
	return []boot.Option{
		boot.WithTimeout(c.Timeout),
		boot.WithRequestExit(c.RequestExit),
		boot.WithCleanExit(c.CleanExit),
		boot.WithPageSize(chip.PageSize),
		boot.WithTicksPerSecond(c.TicksPerSecond()),
		boot.WithFeatures(c.Features),
	}, nil
}
