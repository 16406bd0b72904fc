package sim

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// Segment is a contiguous run of bytes at an address.
type Segment struct {
	Address uint32
	Data    []byte
}

// ReadHex parses an Intel HEX image.
func ReadHex(r io.Reader) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("sim: could not parse intel hex: %w", err)
	}
	var out []Segment
	for _, s := range mem.GetDataSegments() {
		out = append(out, Segment{Address: s.Address, Data: s.Data})
	}
	return out, nil
}

// WriteHex writes segments as Intel HEX with 16 data bytes per record.
func WriteHex(w io.Writer, segments ...Segment) error {
	mem := gohex.NewMemory()
	for _, s := range segments {
		if len(s.Data) == 0 {
			continue
		}
		if err := mem.AddBinary(s.Address, s.Data); err != nil {
			return fmt.Errorf("sim: could not add segment at %#x: %w", s.Address, err)
		}
	}
	if err := mem.DumpIntelHex(w, 16); err != nil {
		return fmt.Errorf("sim: could not write intel hex: %w", err)
	}
	return nil
}

// LoadHex loads an Intel HEX image into flash, bypassing the bootloader.
func (f *Flash) LoadHex(r io.Reader) error {
	segments, err := ReadHex(r)
	if err != nil {
		return err
	}
	for _, s := range segments {
		f.Load(int(s.Address), s.Data)
	}
	return nil
}

// DumpHex writes the flash contents as Intel HEX, leaving out trailing
// erased bytes.
func (f *Flash) DumpHex(w io.Writer) error {
	return WriteHex(w, Segment{Data: trimErased(f.Bytes())})
}

func (e *EEPROM) LoadHex(r io.Reader) error {
	segments, err := ReadHex(r)
	if err != nil {
		return err
	}
	for _, s := range segments {
		e.Load(int(s.Address), s.Data)
	}
	return nil
}

func (e *EEPROM) DumpHex(w io.Writer) error {
	return WriteHex(w, Segment{Data: trimErased(e.Bytes())})
}

func trimErased(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == erased {
		end--
	}
	return b[:end]
}
