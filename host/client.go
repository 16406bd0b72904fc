package host

import (
	"fmt"
	"log/slog"

	"github.com/mklimuk/isploader/usbtiny"
)

// ControlTransferer performs USB control transfers. It is satisfied by
// *gousb.Device, *Device and *sim.Engine.
type ControlTransferer interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// ProgressFunc is called after every chunk with the number of bytes
// transferred so far and the total.
type ProgressFunc func(done, total int)

const (
	DefaultPageSize  = 128
	DefaultChunkSize = 128
	// maxChunk is what the one-byte remaining counter on the device side
	// can track.
	maxChunk = 255
)

type Client struct {
	dev       ControlTransferer
	pageSize  int
	chunkSize int
	progress  ProgressFunc
	log       *slog.Logger
}

type ClientOption func(*Client)

// WithPageSize sets the target flash page size. Flash writes never cross
// a page boundary within one transfer.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 && size <= maxChunk+1 {
			c.pageSize = size
		}
	}
}

// WithChunkSize sets the payload size of memory reads and EEPROM writes.
func WithChunkSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 && size <= maxChunk {
			c.chunkSize = size
		}
	}
}

func WithProgress(fn ProgressFunc) ClientOption {
	return func(c *Client) {
		c.progress = fn
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

func NewClient(dev ControlTransferer, opts ...ClientOption) *Client {
	c := &Client{
		dev:       dev,
		pageSize:  DefaultPageSize,
		chunkSize: DefaultChunkSize,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) in(req usbtiny.Request, val, idx uint16, data []byte) (int, error) {
	n, err := c.dev.Control(usbtiny.RequestTypeIn, uint8(req), val, idx, data)
	if err != nil {
		return n, fmt.Errorf("host: %s: %w", req, err)
	}
	return n, nil
}

func (c *Client) out(req usbtiny.Request, val, idx uint16, data []byte) error {
	n, err := c.dev.Control(usbtiny.RequestTypeOut, uint8(req), val, idx, data)
	if err != nil {
		return fmt.Errorf("host: %s: %w", req, err)
	}
	if n < len(data) {
		return fmt.Errorf("%w: %s sent %d of %d bytes", ErrShortTransfer, req, n, len(data))
	}
	return nil
}

// Echo sends a loopback request and returns the setup packet the device
// saw.
func (c *Client) Echo(value, index uint16) ([]byte, error) {
	buf := make([]byte, usbtiny.SetupSize)
	n, err := c.in(usbtiny.Echo, value, index, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// PowerUp powers the target and sets the SCK period.
func (c *Client) PowerUp(sckPeriod uint16, resetHigh bool) error {
	var reset uint16
	if resetHigh {
		reset = 1
	}
	return c.out(usbtiny.PowerUp, sckPeriod, reset, nil)
}

// PowerDown ends the session. A bootloader commits any pending page and
// starts the application.
func (c *Client) PowerDown() error {
	return c.out(usbtiny.PowerDown, 0, 0, nil)
}

// SPI issues one serial programming instruction and returns the four reply
// bytes.
func (c *Client) SPI(instr usbtiny.Instruction) ([4]byte, error) {
	var reply [4]byte
	value, index := instr.Value()
	n, err := c.in(usbtiny.SPI, value, index, reply[:])
	if err != nil {
		return reply, err
	}
	if n < len(reply) {
		return reply, fmt.Errorf("%w: spi %s returned %d bytes", ErrShortTransfer, instr, n)
	}
	return reply, nil
}

// Enable sends the programming enable instruction and checks the target
// is in sync.
func (c *Client) Enable() error {
	reply, err := c.SPI(usbtiny.ProgrammingEnable())
	if err != nil {
		return err
	}
	if !usbtiny.EnableAcknowledged(reply) {
		return fmt.Errorf("%w: reply % X", ErrProgrammingEnable, reply)
	}
	return nil
}

// Signature reads the three device signature bytes.
func (c *Client) Signature() ([3]byte, error) {
	var sig [3]byte
	for i := range sig {
		reply, err := c.SPI(usbtiny.ReadSignature(uint8(i)))
		if err != nil {
			return sig, err
		}
		sig[i] = reply[3]
	}
	return sig, nil
}

// Fuses holds the fuse, lock and calibration bytes of the target.
type Fuses struct {
	Low         byte `yaml:"low"`
	High        byte `yaml:"high"`
	Extended    byte `yaml:"extended"`
	Lock        byte `yaml:"lock"`
	Calibration byte `yaml:"calibration"`
}

func (c *Client) Fuses() (Fuses, error) {
	var f Fuses
	queries := []struct {
		instr usbtiny.Instruction
		dst   *byte
	}{
		{usbtiny.ReadLowFuse(), &f.Low},
		{usbtiny.ReadHighFuse(), &f.High},
		{usbtiny.ReadExtendedFuse(), &f.Extended},
		{usbtiny.ReadLock(), &f.Lock},
		{usbtiny.ReadCalibration(), &f.Calibration},
	}
	for _, q := range queries {
		reply, err := c.SPI(q.instr)
		if err != nil {
			return f, err
		}
		*q.dst = reply[3]
	}
	return f, nil
}

func (c *Client) report(done, total int) {
	if c.progress != nil {
		c.progress(done, total)
	}
}

func checkRange(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > 1<<16 {
		return fmt.Errorf("%w: %#x+%d", ErrAddressRange, addr, n)
	}
	return nil
}
