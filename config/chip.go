package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/sim"
)

var (
	ErrUnknownChip  = errors.New("config: unknown chip")
	ErrAddressWidth = errors.New("config: flash does not fit the address width of this build")
)

// Chip is the memory layout and identity of a supported microcontroller.
type Chip struct {
	Name        string
	Signature   [3]byte
	PageSize    int
	FlashSize   int
	EEPROMSize  int
	BootSize    int
	Calibration byte
	Fuses       [4]byte
}

// AppSize is the flash left to the application below the bootloader.
func (c Chip) AppSize() int {
	return c.FlashSize - c.BootSize
}

func (c Chip) SignatureString() string {
	return fmt.Sprintf("%02X %02X %02X", c.Signature[0], c.Signature[1], c.Signature[2])
}

// Profile returns the simulated counterpart of the chip.
func (c Chip) Profile() sim.Profile {
	return sim.Profile{
		Name:        c.Name,
		Signature:   c.Signature,
		Calibration: c.Calibration,
		FlashSize:   c.FlashSize,
		PageSize:    c.PageSize,
		EEPROMSize:  c.EEPROMSize,
		Fuses:       c.Fuses,
	}
}

// Addressable reports whether the whole flash can be addressed by
// isploader.Address in this build.
func (c Chip) Addressable() bool {
	return uint64(c.FlashSize) <= isploader.MaxFlashSize
}

func fuses(low, high, extended, lock byte) [4]byte {
	var f [4]byte
	f[isploader.FuseLow] = low
	f[isploader.FuseHigh] = high
	f[isploader.FuseExtended] = extended
	f[isploader.FuseLock] = lock
	return f
}

var chips = map[string]Chip{
	"atmega8": {
		Name:        "atmega8",
		Signature:   [3]byte{0x1E, 0x93, 0x07},
		PageSize:    64,
		FlashSize:   8 * 1024,
		EEPROMSize:  512,
		BootSize:    2 * 1024,
		Calibration: 0xA8,
		Fuses:       fuses(0x9F, 0xC8, 0xFF, 0xFF),
	},
	"atmega88": {
		Name:        "atmega88",
		Signature:   [3]byte{0x1E, 0x93, 0x0A},
		PageSize:    64,
		FlashSize:   8 * 1024,
		EEPROMSize:  512,
		BootSize:    2 * 1024,
		Calibration: 0x94,
		Fuses:       fuses(0xFF, 0xDF, 0xF8, 0xEF),
	},
	"atmega168": {
		Name:        "atmega168",
		Signature:   [3]byte{0x1E, 0x94, 0x06},
		PageSize:    128,
		FlashSize:   16 * 1024,
		EEPROMSize:  512,
		BootSize:    2 * 1024,
		Calibration: 0x96,
		Fuses:       fuses(0xFF, 0xDD, 0xF8, 0xEF),
	},
	"atmega328p": {
		Name:        "atmega328p",
		Signature:   [3]byte{0x1E, 0x95, 0x0F},
		PageSize:    128,
		FlashSize:   32 * 1024,
		EEPROMSize:  1024,
		BootSize:    4 * 1024,
		Calibration: 0x9B,
		Fuses:       fuses(0xFF, 0xD0, 0xFD, 0xEF),
	},
	"atmega644p": {
		Name:        "atmega644p",
		Signature:   [3]byte{0x1E, 0x96, 0x0A},
		PageSize:    256,
		FlashSize:   64 * 1024,
		EEPROMSize:  2 * 1024,
		BootSize:    4 * 1024,
		Calibration: 0x9A,
		Fuses:       fuses(0xFF, 0xD0, 0xFD, 0xEF),
	},
	"atmega1284p": {
		Name:        "atmega1284p",
		Signature:   [3]byte{0x1E, 0x97, 0x05},
		PageSize:    256,
		FlashSize:   128 * 1024,
		EEPROMSize:  4 * 1024,
		BootSize:    4 * 1024,
		Calibration: 0x9C,
		Fuses:       fuses(0xFF, 0xD0, 0xFD, 0xEF),
	},
}

// LookupChip returns the registered chip with the given name.
func LookupChip(name string) (Chip, error) {
	c, ok := chips[name]
	if !ok {
		return Chip{}, fmt.Errorf("%w: %q", ErrUnknownChip, name)
	}
	return c, nil
}

// Chips returns all registered chips ordered by flash size, then name.
func Chips() []Chip {
	list := make([]Chip, 0, len(chips))
	for _, c := range chips {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].FlashSize != list[j].FlashSize {
			return list[i].FlashSize < list[j].FlashSize
		}
		return list[i].Name < list[j].Name
	})
	return list
}
