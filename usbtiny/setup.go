package usbtiny

import (
	"errors"
	"fmt"
)

// SetupSize is the size of a control transfer setup packet in bytes.
const SetupSize = 8

var ErrSetupTooShort = errors.New("usbtiny: setup packet too short")

// Setup is a control transfer setup packet.
type Setup struct {
	RequestType uint8
	Request     Request
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetup decodes the little-endian wire form of a setup packet.
func ParseSetup(data []byte) (Setup, error) {
	if len(data) < SetupSize {
		return Setup{}, fmt.Errorf("%w: %d bytes", ErrSetupTooShort, len(data))
	}
	return Setup{
		RequestType: data[0],
		Request:     Request(data[1]),
		Value:       uint16(data[2]) | uint16(data[3])<<8,
		Index:       uint16(data[4]) | uint16(data[5])<<8,
		Length:      uint16(data[6]) | uint16(data[7])<<8,
	}, nil
}

// Bytes returns the wire form of the setup packet.
func (s Setup) Bytes() [SetupSize]byte {
	return [SetupSize]byte{
		s.RequestType,
		byte(s.Request),
		byte(s.Value),
		byte(s.Value >> 8),
		byte(s.Index),
		byte(s.Index >> 8),
		byte(s.Length),
		byte(s.Length >> 8),
	}
}

// IsIn reports whether the data stage flows from device to host.
func (s Setup) IsIn() bool {
	return s.RequestType&directionIn != 0
}

// Instruction returns the serial programming instruction carried by an SPI
// request in wValue and wIndex.
func (s Setup) Instruction() Instruction {
	return Instruction{byte(s.Value), byte(s.Value >> 8), byte(s.Index), byte(s.Index >> 8)}
}

func (s Setup) String() string {
	return fmt.Sprintf("%s value=%#04x index=%#04x length=%d", s.Request, s.Value, s.Index, s.Length)
}
