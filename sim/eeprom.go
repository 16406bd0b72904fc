package sim

import (
	"sync"

	"github.com/mklimuk/isploader"
)

// EEPROM is byte addressed data memory. Addresses wrap around its size.
type EEPROM struct {
	mu    sync.Mutex
	mem   []byte
	trace *Trace
}

var _ isploader.EEPROM = (*EEPROM)(nil)

func NewEEPROM(size int, trace *Trace) *EEPROM {
	e := &EEPROM{mem: make([]byte, size), trace: trace}
	fill(e.mem, erased)
	return e
}

func (e *EEPROM) Size() int { return len(e.mem) }

func (e *EEPROM) ReadEEPROM(addr uint16) byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem[int(addr)%len(e.mem)]
}

func (e *EEPROM) WriteEEPROM(addr uint16, value byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := int(addr) % len(e.mem)
	e.mem[a] = value
	e.trace.Record(Event{Kind: KindEEPROMWrite, Addr: uint32(a), Value: uint16(value)})
}

func (e *EEPROM) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.mem...)
}

func (e *EEPROM) Load(offset int, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if offset < len(e.mem) {
		copy(e.mem[offset:], data)
	}
}
