package sim

import (
	"fmt"
	"sync"
)

// Kind names a recorded hardware operation.
type Kind string

const (
	KindIRQOff       Kind = "cli"
	KindIRQOn        Kind = "sei"
	KindErase        Kind = "erase"
	KindFill         Kind = "fill"
	KindWrite        Kind = "write"
	KindRWW          Kind = "rww"
	KindEEPROMWrite  Kind = "eeprom-write"
	KindWatchdogOff  Kind = "watchdog-off"
	KindBootVectors  Kind = "boot-vectors"
	KindAppVectors   Kind = "app-vectors"
	KindJump         Kind = "jump"
	KindTimerStart   Kind = "timer-start"
	KindTimerStop    Kind = "timer-stop"
	KindUSBInit      Kind = "usb-init"
	KindUSBConnect   Kind = "usb-connect"
	KindUSBDetach    Kind = "usb-disconnect"
	KindUSBDisable   Kind = "usb-disable"
	KindUSBTransfer  Kind = "usb-transfer"
	KindIndicatorOn  Kind = "led-on"
	KindIndicatorOff Kind = "led-off"
)

// Event is one recorded operation.
type Event struct {
	Kind  Kind
	Addr  uint32
	Value uint16
}

func (e Event) String() string {
	switch e.Kind {
	case KindErase, KindWrite, KindEEPROMWrite, KindUSBTransfer:
		return fmt.Sprintf("%s@%04x", e.Kind, e.Addr)
	case KindFill:
		return fmt.Sprintf("%s@%04x=%04x", e.Kind, e.Addr, e.Value)
	}
	return string(e.Kind)
}

// Trace is an append-only log of hardware operations, safe for concurrent
// use.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

func (t *Trace) Record(e Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

func (t *Trace) record(k Kind) {
	t.Record(Event{Kind: k})
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Kinds returns the kinds of the recorded events, optionally limited to
// the given ones.
func (t *Trace) Kinds(only ...Kind) []Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Kind
	for _, e := range t.events {
		if len(only) == 0 || contains(only, e.Kind) {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Count returns how many events of kind k were recorded.
func (t *Trace) Count(k Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (t *Trace) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

func contains(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
