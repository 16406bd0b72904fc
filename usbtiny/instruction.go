package usbtiny

import "fmt"

// Instruction is a 4-byte AVR serial programming instruction.
type Instruction [4]byte

// Query is what a read instruction asks the target for.
type Query uint8

const (
	QueryNone Query = iota
	QuerySignature
	QueryLowFuse
	QueryHighFuse
	QueryExtendedFuse
	QueryLock
	QueryCalibration
)

func (q Query) String() string {
	switch q {
	case QuerySignature:
		return "signature"
	case QueryLowFuse:
		return "low-fuse"
	case QueryHighFuse:
		return "high-fuse"
	case QueryExtendedFuse:
		return "extended-fuse"
	case QueryLock:
		return "lock"
	case QueryCalibration:
		return "calibration"
	default:
		return "none"
	}
}

// Serial programming instruction set opcodes.
const (
	opProgrammingEnable = 0xAC
	opReadSignature     = 0x30
	opReadCalibration   = 0x38
	opReadFuseLow       = 0x50
	opReadFuseHigh      = 0x58
	opWritePage         = 0x4C

	enableEcho = 0x53
)

// Decode classifies a read instruction. For QuerySignature the second
// return value is the signature byte index.
func (i Instruction) Decode() (Query, uint8) {
	switch {
	case i[0] == opReadSignature && i[1] == 0x00:
		return QuerySignature, i[2]
	case i[0] == opReadFuseLow && i[1] == 0x00 && i[2] == 0x00:
		return QueryLowFuse, 0
	case i[0] == opReadFuseHigh && i[1] == 0x08 && i[2] == 0x00:
		return QueryHighFuse, 0
	case i[0] == opReadFuseLow && i[1] == 0x08 && i[2] == 0x00:
		return QueryExtendedFuse, 0
	case i[0] == opReadFuseHigh && i[1] == 0x00 && i[2] == 0x00:
		return QueryLock, 0
	case i[0] == opReadCalibration && i[1] == 0x00 && i[2] == 0x00:
		return QueryCalibration, 0
	}
	return QueryNone, 0
}

// Value splits an instruction into the wValue and wIndex parameters of an
// SPI request.
func (i Instruction) Value() (value, index uint16) {
	return uint16(i[0]) | uint16(i[1])<<8, uint16(i[2]) | uint16(i[3])<<8
}

func (i Instruction) String() string {
	return fmt.Sprintf("% X", i[:])
}

// ProgrammingEnable returns the instruction that starts a programming
// session. A target in sync echoes 0x53 in the third reply byte.
func ProgrammingEnable() Instruction {
	return Instruction{opProgrammingEnable, enableEcho, 0x00, 0x00}
}

// EnableAcknowledged reports whether reply answers ProgrammingEnable.
func EnableAcknowledged(reply [4]byte) bool {
	return reply[2] == enableEcho
}

func ReadSignature(index uint8) Instruction {
	return Instruction{opReadSignature, 0x00, index, 0x00}
}

func ReadLowFuse() Instruction      { return Instruction{opReadFuseLow, 0x00, 0x00, 0x00} }
func ReadHighFuse() Instruction     { return Instruction{opReadFuseHigh, 0x08, 0x00, 0x00} }
func ReadExtendedFuse() Instruction { return Instruction{opReadFuseLow, 0x08, 0x00, 0x00} }
func ReadLock() Instruction         { return Instruction{opReadFuseHigh, 0x00, 0x00, 0x00} }
func ReadCalibration() Instruction  { return Instruction{opReadCalibration, 0x00, 0x00, 0x00} }

// WritePage commits the programmer page buffer at the given byte address.
func WritePage(addr uint32) Instruction {
	word := addr >> 1
	return Instruction{opWritePage, byte(word >> 8), byte(word), 0x00}
}
