package boot

import (
	"log/slog"

	"github.com/mklimuk/isploader"
)

// Features switches individual memory operations on or off. A disabled
// read still streams its length, a disabled write still consumes it.
type Features struct {
	FlashRead     bool `yaml:"flash_read"`
	FlashWrite    bool `yaml:"flash_write"`
	EEPROMRead    bool `yaml:"eeprom_read"`
	EEPROMWrite   bool `yaml:"eeprom_write"`
	SignatureRead bool `yaml:"signature_read"`
	FuseRead      bool `yaml:"fuse_read"`
}

// AllFeatures enables every operation.
func AllFeatures() Features {
	return Features{
		FlashRead:     true,
		FlashWrite:    true,
		EEPROMRead:    true,
		EEPROMWrite:   true,
		SignatureRead: true,
		FuseRead:      true,
	}
}

// TransitionFunc observes lifecycle state changes.
type TransitionFunc func(from, to State)

type Options struct {
	// Timeout is the number of idle seconds tolerated before the loader
	// exits on its own. The loader leaves once the idle count exceeds it.
	Timeout uint8
	// RequestExit lets a power-down request end the session.
	RequestExit bool
	// CleanExit keeps polling the USB engine for CleanExitTicks after an
	// explicit exit so the host sees the last transfer complete.
	CleanExit bool

	PageSize       int
	TicksPerSecond uint16
	ReconnectTicks uint16
	CleanExitTicks uint16
	// BlinkMask selects the timer bit driving the activity LED.
	BlinkMask uint16

	Features     Features
	Indicator    isploader.Indicator
	Logger       *slog.Logger
	OnTransition TransitionFunc
}

// DefaultTicksPerSecond is the timer rate of a 16 MHz clock with a 1024
// prescaler.
const DefaultTicksPerSecond = 16_000_000 / 1024

func defaultOptions() Options {
	return Options{
		Timeout:        5,
		RequestExit:    true,
		CleanExit:      true,
		PageSize:       128,
		TicksPerSecond: DefaultTicksPerSecond,
		ReconnectTicks: 4000,
		CleanExitTicks: 4000,
		BlinkMask:      4096,
		Features:       AllFeatures(),
	}
}

type Option func(*Options)

// WithTimeout sets the idle timeout in seconds.
func WithTimeout(seconds uint8) Option {
	return func(o *Options) {
		o.Timeout = seconds
	}
}

func WithRequestExit(enabled bool) Option {
	return func(o *Options) {
		o.RequestExit = enabled
	}
}

func WithCleanExit(enabled bool) Option {
	return func(o *Options) {
		o.CleanExit = enabled
	}
}

// WithPageSize sets the flash page size in bytes. Sizes that are not an
// even power of two are ignored.
func WithPageSize(size int) Option {
	return func(o *Options) {
		if size >= 2 && size&(size-1) == 0 {
			o.PageSize = size
		}
	}
}

// WithTicksPerSecond sets the timer rate used to count idle seconds.
func WithTicksPerSecond(ticks uint16) Option {
	return func(o *Options) {
		if ticks > 0 {
			o.TicksPerSecond = ticks
		}
	}
}

// WithReconnectTicks sets how long the device stays detached to force the
// host to enumerate it again.
func WithReconnectTicks(ticks uint16) Option {
	return func(o *Options) {
		o.ReconnectTicks = ticks
	}
}

func WithCleanExitTicks(ticks uint16) Option {
	return func(o *Options) {
		o.CleanExitTicks = ticks
	}
}

func WithBlinkMask(mask uint16) Option {
	return func(o *Options) {
		o.BlinkMask = mask
	}
}

func WithFeatures(f Features) Option {
	return func(o *Options) {
		o.Features = f
	}
}

func WithIndicator(ind isploader.Indicator) Option {
	return func(o *Options) {
		o.Indicator = ind
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTransitionHook registers a callback run on every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(o *Options) {
		o.OnTransition = fn
	}
}
