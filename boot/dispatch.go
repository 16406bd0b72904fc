package boot

import (
	"log/slog"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/usbtiny"
)

// Dispatcher answers USBtinyISP requests. It implements isploader.Handler
// and is driven by the USB engine from within Poll.
type Dispatcher struct {
	s        *Session
	pw       *PageWriter
	code     isploader.CodeReader
	eeprom   isploader.EEPROM
	sig      isploader.SignatureRow
	features Features
	reqExit  bool
	log      *slog.Logger
}

var _ isploader.Handler = (*Dispatcher)(nil)

// NewDispatcher returns a dispatcher working on session s.
func NewDispatcher(s *Session, hw isploader.Hardware, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newDispatcher(s, hw, o)
}

func newDispatcher(s *Session, hw isploader.Hardware, o Options) *Dispatcher {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		s:        s,
		pw:       NewPageWriter(s, hw.Flash, hw.Interrupts, o.PageSize),
		code:     hw.Code,
		eeprom:   hw.EEPROM,
		sig:      hw.Signature,
		features: o.Features,
		reqExit:  o.RequestExit,
		log:      logger,
	}
}

// Session returns the state the dispatcher works on.
func (d *Dispatcher) Session() *Session { return d.s }

// PageWriter returns the flash page writer.
func (d *Dispatcher) PageWriter() *PageWriter { return d.pw }

// Setup handles the setup stage of a control transfer. Unknown requests
// are acknowledged with an empty reply.
func (d *Dispatcher) Setup(setup usbtiny.Setup) isploader.Reply {
	s := d.s
	s.timeout = 0
	s.active = true
	d.log.Debug("usbtiny request",
		"request", setup.Request,
		"value", setup.Value,
		"index", setup.Index,
		"length", setup.Length)

	switch setup.Request {
	case usbtiny.Echo:
		raw := setup.Bytes()
		copy(s.reply[:], raw[:])
		return d.reply(usbtiny.SetupSize)
	case usbtiny.Read:
		s.reply[0] = 0
		return d.reply(1)
	case usbtiny.PowerDown:
		d.pw.Finalize()
		if d.reqExit {
			s.exit = true
		}
		return d.reply(0)
	case usbtiny.SPI:
		d.pw.Finalize()
		d.spi(setup.Instruction())
		return d.reply(4)
	case usbtiny.SPI1:
		d.pw.Finalize()
		s.reply[0] = 0
		return d.reply(1)
	case usbtiny.PollBytes:
		d.pw.Finalize()
		return d.reply(0)
	case usbtiny.FlashRead, usbtiny.FlashWrite, usbtiny.EEPROMRead, usbtiny.EEPROMWrite:
		return d.begin(setup)
	}
	// Write, Clear, Set, PowerUp and DDRWrite have no pins to drive.
	return d.reply(0)
}

func (d *Dispatcher) reply(n int) isploader.Reply {
	return isploader.Reply{Data: d.s.reply[:n]}
}

// spi answers an emulated serial programming instruction. The third reply
// byte echoes the second instruction byte so the programming enable
// handshake succeeds.
func (d *Dispatcher) spi(instr usbtiny.Instruction) {
	s := d.s
	s.reply = [replySize]byte{}
	s.reply[2] = instr[1]

	query, index := instr.Decode()
	switch query {
	case usbtiny.QuerySignature:
		if d.features.SignatureRead {
			s.reply[3] = d.sig.SignatureByte(uint16(index) * 2)
		}
	case usbtiny.QueryLowFuse:
		s.reply[3] = d.fuse(isploader.FuseLow)
	case usbtiny.QueryHighFuse:
		s.reply[3] = d.fuse(isploader.FuseHigh)
	case usbtiny.QueryExtendedFuse:
		s.reply[3] = d.fuse(isploader.FuseExtended)
	case usbtiny.QueryLock:
		s.reply[3] = d.fuse(isploader.FuseLock)
	case usbtiny.QueryCalibration:
		if d.features.FuseRead {
			// the calibration byte lives at signature row address 1
			s.reply[3] = d.sig.SignatureByte(1)
		}
	}
}

func (d *Dispatcher) fuse(f isploader.Fuse) byte {
	if !d.features.FuseRead {
		return 0
	}
	return d.sig.FuseByte(f)
}

// begin primes the cursor for a streamed request. Leaving a flash write,
// or moving it to another page, commits the buffered page before the
// cursor moves.
func (d *Dispatcher) begin(setup usbtiny.Setup) isploader.Reply {
	s := d.s
	cmd := commandFor(setup.Request)
	addr := isploader.Address(setup.Index)
	if cmd != CommandFlashWrite || d.pw.PageOf(addr) != d.pw.Page() {
		d.pw.Finalize()
	}
	s.cmd = cmd
	s.addr = addr
	s.remaining = uint8(setup.Length)
	s.carried = false
	return isploader.Reply{Stream: true}
}
