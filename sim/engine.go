package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/usbtiny"
)

// PacketSize is the low-speed control endpoint packet size.
const PacketSize = 8

var (
	ErrDetached = errors.New("sim: device detached")
	ErrTimeout  = errors.New("sim: transfer timed out")
)

type transfer struct {
	setup usbtiny.Setup
	data  []byte
	n     int
	done  chan struct{}
}

// Engine is a USB engine joined to a host end. Control, called by the
// host, blocks until the device side services the transfer from Poll.
// Data stages are cut into PacketSize packets the way a low-speed device
// sees them.
type Engine struct {
	mu        sync.Mutex
	handler   isploader.Handler
	connected bool
	disabled  bool
	transfers int

	queue    chan *transfer
	detached chan struct{}
	detach   sync.Once

	timeout time.Duration
	wait    time.Duration
	idle    *time.Timer

	trace *Trace
}

var _ isploader.USBEngine = (*Engine)(nil)

// NewEngine returns an engine whose Control gives up after timeout and
// whose Poll waits up to wait for a transfer before returning.
func NewEngine(timeout, wait time.Duration, trace *Trace) *Engine {
	return &Engine{
		queue:    make(chan *transfer),
		detached: make(chan struct{}),
		timeout:  timeout,
		wait:     wait,
		trace:    trace,
	}
}

func (e *Engine) Init(h isploader.Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
	e.trace.record(KindUSBInit)
}

func (e *Engine) Disconnect() {
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
	e.trace.record(KindUSBDetach)
}

func (e *Engine) Connect() {
	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	e.trace.record(KindUSBConnect)
}

// Disable detaches the device for good. Pending and future host transfers
// fail with ErrDetached.
func (e *Engine) Disable() {
	e.mu.Lock()
	e.disabled = true
	e.mu.Unlock()
	e.detach.Do(func() { close(e.detached) })
	e.trace.record(KindUSBDisable)
}

// Poll services at most one pending control transfer.
func (e *Engine) Poll() {
	e.mu.Lock()
	h := e.handler
	ready := e.connected && !e.disabled && h != nil
	e.mu.Unlock()
	if !ready {
		return
	}

	var x *transfer
	if e.wait <= 0 {
		select {
		case x = <-e.queue:
		default:
			return
		}
	} else {
		if e.idle == nil {
			e.idle = time.NewTimer(e.wait)
		} else {
			e.idle.Reset(e.wait)
		}
		select {
		case x = <-e.queue:
			e.idle.Stop()
		case <-e.idle.C:
			return
		}
	}

	x.n = e.service(h, x)
	e.mu.Lock()
	e.transfers++
	e.mu.Unlock()
	close(x.done)
}

func (e *Engine) service(h isploader.Handler, x *transfer) int {
	e.trace.Record(Event{Kind: KindUSBTransfer, Addr: uint32(x.setup.Request)})
	reply := h.Setup(x.setup)
	length := int(x.setup.Length)
	in := x.setup.IsIn()

	if !reply.Stream {
		if !in {
			return length
		}
		return copy(x.data[:length], reply.Data)
	}

	n := 0
	for n < length {
		end := min(n+PacketSize, length)
		if in {
			got := h.Read(x.data[n:end])
			short := got < end-n
			n += got
			if short {
				break
			}
			continue
		}
		last := h.Write(x.data[n:end])
		n = end
		if last {
			break
		}
	}
	return n
}

// Control performs a control transfer from the host side. For IN requests
// data receives the reply; for OUT requests it is the payload. The
// signature matches gousb.Device.Control.
func (e *Engine) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	x := &transfer{
		setup: usbtiny.Setup{
			RequestType: rType,
			Request:     usbtiny.Request(request),
			Value:       val,
			Index:       idx,
			Length:      uint16(len(data)),
		},
		data: data,
		done: make(chan struct{}),
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case e.queue <- x:
	case <-e.detached:
		return 0, fmt.Errorf("%w: %s", ErrDetached, x.setup.Request)
	case <-timer.C:
		return 0, fmt.Errorf("%w: %s after %s", ErrTimeout, x.setup.Request, e.timeout)
	}
	<-x.done
	return x.n, nil
}

// Transfers returns the number of serviced control transfers.
func (e *Engine) Transfers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transfers
}

func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected && !e.disabled
}
