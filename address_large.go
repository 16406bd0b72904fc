//go:build largeflash

package isploader

// Address is a byte offset into flash or EEPROM.
type Address uint32

// MaxFlashSize is the largest flash that Address can span.
const MaxFlashSize uint64 = 1 << 32
