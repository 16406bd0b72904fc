package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/usbtiny"
)

// scriptedHandler streams a fixed number of bytes and records packet
// sizes.
type scriptedHandler struct {
	setups  []usbtiny.Setup
	reads   []int
	writes  [][]byte
	reply   []byte
	stream  bool
	produce int
	expect  int
}

func (h *scriptedHandler) Setup(s usbtiny.Setup) isploader.Reply {
	h.setups = append(h.setups, s)
	return isploader.Reply{Data: h.reply, Stream: h.stream}
}

func (h *scriptedHandler) Read(buf []byte) int {
	h.reads = append(h.reads, len(buf))
	n := min(len(buf), h.produce)
	for i := 0; i < n; i++ {
		buf[i] = byte(i)
	}
	h.produce -= n
	return n
}

func (h *scriptedHandler) Write(data []byte) bool {
	h.writes = append(h.writes, append([]byte(nil), data...))
	h.expect -= len(data)
	return h.expect <= 0
}

// serve polls e until ctx is done.
func serve(ctx context.Context, e *Engine) {
	for ctx.Err() == nil {
		e.Poll()
	}
}

func newServedEngine(t *testing.T, h isploader.Handler) *Engine {
	e := NewEngine(time.Second, 0, nil)
	e.Init(h)
	e.Connect()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go serve(ctx, e)
	return e
}

func TestEngine_InPacketization(t *testing.T) {
	h := &scriptedHandler{stream: true, produce: 20}
	e := newServedEngine(t, h)

	buf := make([]byte, 32)
	n, err := e.Control(usbtiny.RequestTypeIn, uint8(usbtiny.FlashRead), 0, 0x10, buf)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, []int{8, 8, 8}, h.reads, "short packet ends the transfer")
	assert.Equal(t, uint16(32), h.setups[0].Length)
	assert.Equal(t, uint16(0x10), h.setups[0].Index)
}

func TestEngine_OutPacketization(t *testing.T) {
	h := &scriptedHandler{stream: true, expect: 12}
	e := newServedEngine(t, h)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	n, err := e.Control(usbtiny.RequestTypeOut, uint8(usbtiny.EEPROMWrite), 0, 0, payload)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, [][]byte{payload[:8], payload[8:]}, h.writes)
}

func TestEngine_ImmediateReply(t *testing.T) {
	h := &scriptedHandler{reply: []byte{1, 2, 3, 4}}
	e := newServedEngine(t, h)

	buf := make([]byte, 8)
	n, err := e.Control(usbtiny.RequestTypeIn, uint8(usbtiny.SPI), 0, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[:n])
	assert.Equal(t, 1, e.Transfers())
}

func TestEngine_Detached(t *testing.T) {
	e := NewEngine(time.Second, 0, nil)
	e.Disable()
	_, err := e.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 0, 0, nil)
	assert.ErrorIs(t, err, ErrDetached)
}

func TestEngine_Timeout(t *testing.T) {
	e := NewEngine(10*time.Millisecond, 0, nil)
	_, err := e.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 0, 0, nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestEngine_IgnoresTrafficWhileDisconnected(t *testing.T) {
	h := &scriptedHandler{}
	e := NewEngine(20*time.Millisecond, 0, nil)
	e.Init(h)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serve(ctx, e)

	_, err := e.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 0, 0, nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, h.setups)
}
