package boot

import "github.com/mklimuk/isploader"

// PageWriter buffers words into the self-programming page buffer and
// commits whole pages. A page is erased when its first word arrives.
type PageWriter struct {
	s    *Session
	spm  isploader.SelfProgrammer
	irq  isploader.Interrupts
	mask isploader.Address
	last isploader.Address
}

// NewPageWriter returns a writer for pages of pageSize bytes, which must be
// a power of two.
func NewPageWriter(s *Session, spm isploader.SelfProgrammer, irq isploader.Interrupts, pageSize int) *PageWriter {
	return &PageWriter{
		s:    s,
		spm:  spm,
		irq:  irq,
		mask: isploader.Address(pageSize - 1),
	}
}

// WriteWord loads value into the page buffer at addr. A page-aligned addr
// erases its page first.
func (w *PageWriter) WriteWord(addr isploader.Address, value uint16) {
	if w.Aligned(addr) {
		w.irq.Disable()
		w.spm.ErasePage(addr)
		w.irq.Enable()
		w.wait()
	}
	w.s.dirty = true
	w.irq.Disable()
	w.spm.FillWord(addr, value)
	w.irq.Enable()
	w.last = addr
}

// Finalize commits the buffered page and restores read access to flash.
// It does nothing when no word is buffered.
func (w *PageWriter) Finalize() {
	if !w.s.dirty {
		return
	}
	w.irq.Disable()
	w.spm.WritePage(w.last)
	w.irq.Enable()
	w.wait()
	w.irq.Disable()
	w.spm.EnableRWW()
	w.irq.Enable()
	w.s.dirty = false
}

// Aligned reports whether addr starts a page.
func (w *PageWriter) Aligned(addr isploader.Address) bool {
	return addr&w.mask == 0
}

// Page returns the start of the page holding the last buffered word.
func (w *PageWriter) Page() isploader.Address {
	return w.last &^ w.mask
}

// PageOf returns the start of the page holding addr.
func (w *PageWriter) PageOf(addr isploader.Address) isploader.Address {
	return addr &^ w.mask
}

// wait spins until the self-programming unit is idle. The hardware
// guarantees completion.
func (w *PageWriter) wait() {
	for w.spm.Busy() {
	}
}
