package isploader

import "github.com/mklimuk/isploader/usbtiny"

// Reply is the answer prepared by a Handler for a setup packet.
type Reply struct {
	// Data holds the bytes to send in the IN data stage. The slice stays
	// valid until the next call to Setup.
	Data []byte
	// Stream tells the engine that the data stage is serviced by
	// Handler.Read or Handler.Write, one packet at a time.
	Stream bool
}

// Handler is the set of hooks a USB engine invokes for every vendor
// control transfer.
type Handler interface {
	Setup(setup usbtiny.Setup) Reply
	// Read fills buf with the next bytes of a streamed IN transfer and
	// returns how many were produced.
	Read(buf []byte) int
	// Write consumes one OUT packet and reports whether the transfer is
	// complete.
	Write(data []byte) bool
}

// USBEngine segments control transfers and calls the Handler hooks from
// within Poll.
type USBEngine interface {
	Init(h Handler)
	Disconnect()
	Connect()
	Poll()
	// Disable masks the engine interrupt sources.
	Disable()
}

// SelfProgrammer is the on-chip flash self-programming unit. Every
// operation is addressed by byte and scoped to one page.
type SelfProgrammer interface {
	ErasePage(addr Address)
	FillWord(addr Address, word uint16)
	WritePage(addr Address)
	// EnableRWW re-enables read access to the section being programmed.
	EnableRWW()
	Busy() bool
}

type CodeReader interface {
	ReadCode(addr Address) byte
}

type EEPROM interface {
	ReadEEPROM(addr uint16) byte
	WriteEEPROM(addr uint16, value byte)
}

// Fuse selects one of the lock or fuse bytes.
type Fuse byte

const (
	FuseLow Fuse = iota
	FuseLock
	FuseExtended
	FuseHigh
)

func (f Fuse) String() string {
	switch f {
	case FuseLow:
		return "low"
	case FuseLock:
		return "lock"
	case FuseExtended:
		return "extended"
	case FuseHigh:
		return "high"
	default:
		return "unknown"
	}
}

// SignatureRow gives read access to the device signature row and the
// fuse and lock bytes.
type SignatureRow interface {
	SignatureByte(addr uint16) byte
	FuseByte(f Fuse) byte
}

// Interrupts is the global interrupt flag.
type Interrupts interface {
	Disable()
	Enable()
}

// Timer is a free-running 16-bit counter.
type Timer interface {
	Start()
	Count() uint16
	Reset()
	Stop()
}

type Platform interface {
	DisableWatchdog()
	// BootVectors moves the interrupt vector table to the bootloader section.
	BootVectors()
	// AppVectors moves it back to the application section.
	AppVectors()
	// JumpToApp transfers control to address zero. On hardware it never
	// returns.
	JumpToApp()
}

// Indicator is an activity LED.
type Indicator interface {
	On() error
	Off() error
}

// Hardware bundles everything the bootloader needs from the chip.
type Hardware struct {
	USB        USBEngine
	Flash      SelfProgrammer
	Code       CodeReader
	EEPROM     EEPROM
	Signature  SignatureRow
	Interrupts Interrupts
	Timer      Timer
	Platform   Platform
}
