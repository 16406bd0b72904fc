package sim

import (
	"sync"

	"github.com/mklimuk/isploader"
)

const erased = 0xFF

// Flash is program memory with a self-programming unit. Words are loaded
// into a temporary page buffer and reach memory when the page is written.
// Like the real cell array, a page write can only clear bits, so writing
// a page that was not erased ANDs the buffer into it.
//
// While an erase or write is in progress, and until read access is
// re-enabled, reads return 0xFF.
type Flash struct {
	mu       sync.Mutex
	mem      []byte
	buf      []byte
	pageSize int
	latency  int
	busy     int
	rwwBusy  bool
	erases   map[uint32]int
	writes   map[uint32]int
	trace    *Trace
}

var (
	_ isploader.SelfProgrammer = (*Flash)(nil)
	_ isploader.CodeReader     = (*Flash)(nil)
)

// NewFlash returns erased flash of size bytes. latency is the number of
// Busy polls an erase or page write lasts.
func NewFlash(size, pageSize, latency int, trace *Trace) *Flash {
	f := &Flash{
		mem:      make([]byte, size),
		buf:      make([]byte, pageSize),
		pageSize: pageSize,
		latency:  latency,
		erases:   make(map[uint32]int),
		writes:   make(map[uint32]int),
		trace:    trace,
	}
	fill(f.mem, erased)
	fill(f.buf, erased)
	return f
}

func (f *Flash) Size() int     { return len(f.mem) }
func (f *Flash) PageSize() int { return f.pageSize }

func (f *Flash) page(addr isploader.Address) uint32 {
	return uint32(addr) % uint32(len(f.mem)) &^ uint32(f.pageSize-1)
}

func (f *Flash) ErasePage(addr isploader.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.page(addr)
	fill(f.mem[p:p+uint32(f.pageSize)], erased)
	f.erases[p]++
	f.busy = f.latency
	f.rwwBusy = true
	f.trace.Record(Event{Kind: KindErase, Addr: p})
}

func (f *Flash) FillWord(addr isploader.Address, word uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := uint32(addr) & uint32(f.pageSize-1) &^ 1
	f.buf[off] &= byte(word)
	f.buf[off+1] &= byte(word >> 8)
	f.trace.Record(Event{Kind: KindFill, Addr: uint32(addr), Value: word})
}

func (f *Flash) WritePage(addr isploader.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.page(addr)
	for i, b := range f.buf {
		f.mem[p+uint32(i)] &= b
	}
	fill(f.buf, erased)
	f.writes[p]++
	f.busy = f.latency
	f.rwwBusy = true
	f.trace.Record(Event{Kind: KindWrite, Addr: p})
}

func (f *Flash) EnableRWW() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rwwBusy = false
	f.trace.record(KindRWW)
}

// Busy reports whether the last erase or write is still running. Every
// call brings it one step closer to completion.
func (f *Flash) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy > 0 {
		f.busy--
		return true
	}
	return false
}

// ReadCode reads one byte of program memory. Addresses wrap around the
// flash size.
func (f *Flash) ReadCode(addr isploader.Address) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rwwBusy {
		return erased
	}
	return f.mem[uint32(addr)%uint32(len(f.mem))]
}

// Bytes returns a copy of the flash contents.
func (f *Flash) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.mem...)
}

// Load copies data into flash at offset, bypassing the self-programming
// unit. Bytes past the end of flash are dropped.
func (f *Flash) Load(offset int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset < len(f.mem) {
		copy(f.mem[offset:], data)
	}
}

// Erases returns how many times the page starting at addr was erased.
func (f *Flash) Erases(addr uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erases[addr]
}

// Writes returns how many times the page starting at addr was written.
func (f *Flash) Writes(addr uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[addr]
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
