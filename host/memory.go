package host

import (
	"fmt"

	"github.com/mklimuk/isploader/usbtiny"
)

// ReadFlash reads n bytes of program memory starting at addr.
func (c *Client) ReadFlash(addr uint32, n int) ([]byte, error) {
	return c.read(usbtiny.FlashRead, addr, n)
}

// ReadEEPROM reads n bytes of data memory starting at addr.
func (c *Client) ReadEEPROM(addr uint32, n int) ([]byte, error) {
	return c.read(usbtiny.EEPROMRead, addr, n)
}

func (c *Client) read(req usbtiny.Request, addr uint32, n int) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	for done := 0; done < n; {
		size := min(c.chunkSize, n-done)
		chunk := buf[done : done+size]
		at := addr + uint32(done)
		got, err := c.in(req, 0, uint16(at), chunk)
		if err != nil {
			return buf[:done], err
		}
		if got < size {
			return buf[:done+got], fmt.Errorf("%w: %s at %#06x returned %d of %d bytes", ErrShortTransfer, req, at, got, size)
		}
		done += size
		c.log.Debug("read chunk", "request", req, "addr", at, "size", size)
		c.report(done, n)
	}
	return buf, nil
}

// WriteFlash programs data at addr. Transfers never cross a page
// boundary and every page is committed with a write program memory page
// instruction once its last byte is sent.
func (c *Client) WriteFlash(addr uint32, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}
	page := uint32(c.pageSize)
	for done := 0; done < len(data); {
		at := addr + uint32(done)
		start := at - at%page
		size := min(int(start+page-at), len(data)-done, c.chunkSize)
		if err := c.out(usbtiny.FlashWrite, 0, uint16(at), data[done:done+size]); err != nil {
			return err
		}
		done += size
		if end := at + uint32(size); end == start+page || done == len(data) {
			if _, err := c.SPI(usbtiny.WritePage(start)); err != nil {
				return fmt.Errorf("host: commit page %#06x: %w", start, err)
			}
			c.log.Debug("wrote page", "page", start)
		}
		c.report(done, len(data))
	}
	return nil
}

// WriteEEPROM writes data memory starting at addr.
func (c *Client) WriteEEPROM(addr uint32, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}
	for done := 0; done < len(data); {
		size := min(c.chunkSize, len(data)-done)
		at := addr + uint32(done)
		if err := c.out(usbtiny.EEPROMWrite, 0, uint16(at), data[done:done+size]); err != nil {
			return err
		}
		done += size
		c.report(done, len(data))
	}
	return nil
}

// VerifyFlash reads program memory back and compares it with data.
func (c *Client) VerifyFlash(addr uint32, data []byte) error {
	got, err := c.ReadFlash(addr, len(data))
	if err != nil {
		return err
	}
	return compare(addr, data, got)
}

func (c *Client) VerifyEEPROM(addr uint32, data []byte) error {
	got, err := c.ReadEEPROM(addr, len(data))
	if err != nil {
		return err
	}
	return compare(addr, data, got)
}

func compare(addr uint32, expected, actual []byte) error {
	for i := range expected {
		if expected[i] != actual[i] {
			return &VerifyError{Addr: addr + uint32(i), Expected: expected[i], Actual: actual[i]}
		}
	}
	return nil
}
