//go:build !largeflash

package isploader

// Address is a byte offset into flash or EEPROM. Chips with more than
// 64 KiB of flash need the largeflash build tag.
type Address uint16

// MaxFlashSize is the largest flash that Address can span.
const MaxFlashSize uint64 = 1 << 16
