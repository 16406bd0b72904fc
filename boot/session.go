package boot

import (
	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/usbtiny"
)

// Command is the streamed operation in progress.
type Command uint8

const (
	CommandNone Command = iota
	CommandFlashRead
	CommandFlashWrite
	CommandEEPROMRead
	CommandEEPROMWrite
)

func (c Command) String() string {
	switch c {
	case CommandFlashRead:
		return "flash-read"
	case CommandFlashWrite:
		return "flash-write"
	case CommandEEPROMRead:
		return "eeprom-read"
	case CommandEEPROMWrite:
		return "eeprom-write"
	default:
		return "none"
	}
}

func commandFor(r usbtiny.Request) Command {
	switch r {
	case usbtiny.FlashRead:
		return CommandFlashRead
	case usbtiny.FlashWrite:
		return CommandFlashWrite
	case usbtiny.EEPROMRead:
		return CommandEEPROMRead
	case usbtiny.EEPROMWrite:
		return CommandEEPROMWrite
	}
	return CommandNone
}

// replySize is the size of the buffer answering non-streamed requests.
const replySize = 8

// Session is the bootloader state shared by the dispatcher, the streaming
// handlers and the lifecycle loop.
type Session struct {
	addr      isploader.Address
	cmd       Command
	remaining uint8
	dirty     bool

	// odd flash byte waiting for its pair
	half    byte
	carried bool

	timeout uint16
	exit    bool
	active  bool

	reply [replySize]byte
}

// Address returns the cursor.
func (s *Session) Address() isploader.Address { return s.addr }

// Seek moves the cursor.
func (s *Session) Seek(addr isploader.Address) { s.addr = addr }

// Advance moves the cursor forward by n bytes.
func (s *Session) Advance(n int) { s.addr += isploader.Address(n) }

func (s *Session) Pending() Command { return s.cmd }
func (s *Session) Remaining() uint8 { return s.remaining }
func (s *Session) Dirty() bool { return s.dirty }
func (s *Session) Timeout() uint16 { return s.timeout }
func (s *Session) ExitRequested() bool { return s.exit }
func (s *Session) Active() bool { return s.active }

// consume clamps n to the bytes still owed and takes them off the count.
func (s *Session) consume(n int) int {
	if n > int(s.remaining) {
		n = int(s.remaining)
	}
	s.remaining -= uint8(n)
	return n
}
