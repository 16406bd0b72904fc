package sim

import (
	"fmt"

	"github.com/mklimuk/isploader"
)

// Profile describes the memories and identity of a simulated chip.
type Profile struct {
	Name        string
	Signature   [3]byte
	Calibration byte
	FlashSize   int
	PageSize    int
	EEPROMSize  int
	// Fuses is indexed by isploader.Fuse.
	Fuses [4]byte
}

func (p Profile) String() string {
	return fmt.Sprintf("%s (%02X %02X %02X)", p.Name, p.Signature[0], p.Signature[1], p.Signature[2])
}

// ATmega328P as found on a Trinket Pro with the bootloader installed.
var ATmega328P = Profile{
	Name:        "atmega328p",
	Signature:   [3]byte{0x1E, 0x95, 0x0F},
	Calibration: 0x9B,
	FlashSize:   32 * 1024,
	PageSize:    128,
	EEPROMSize:  1024,
	Fuses: [4]byte{
		isploader.FuseLow:      0xFF,
		isploader.FuseLock:     0xEF,
		isploader.FuseExtended: 0xFD,
		isploader.FuseHigh:     0xD0,
	},
}

// SignatureRow serves the signature bytes at even addresses, the
// oscillator calibration byte at address 1 and the fuse bytes.
type SignatureRow struct {
	profile Profile
}

var _ isploader.SignatureRow = (*SignatureRow)(nil)

func NewSignatureRow(p Profile) *SignatureRow {
	return &SignatureRow{profile: p}
}

func (r *SignatureRow) SignatureByte(addr uint16) byte {
	switch addr {
	case 0, 2, 4:
		return r.profile.Signature[addr/2]
	case 1:
		return r.profile.Calibration
	}
	return erased
}

func (r *SignatureRow) FuseByte(f isploader.Fuse) byte {
	if int(f) >= len(r.profile.Fuses) {
		return erased
	}
	return r.profile.Fuses[f]
}
