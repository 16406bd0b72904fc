package host

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/isploader/boot"
	"github.com/mklimuk/isploader/sim"
	"github.com/mklimuk/isploader/usbtiny"
)

// startLoader runs a bootloader on a simulated board and returns a client
// talking to it.
func startLoader(t *testing.T, opts ...ClientOption) (*Client, *sim.Board, <-chan error) {
	t.Helper()
	b := sim.NewBoard(sim.ATmega328P)
	l := boot.New(b.Hardware(),
		boot.WithTicksPerSecond(math.MaxUint16),
		boot.WithReconnectTicks(10),
		boot.WithCleanExitTicks(10),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		done <- l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return NewClient(b.USB, opts...), b, done
}

func TestRequestTypes(t *testing.T) {
	vendor := uint8(gousb.ControlVendor) | uint8(gousb.ControlDevice)
	assert.Equal(t, uint8(gousb.ControlIn)|vendor, usbtiny.RequestTypeIn)
	assert.Equal(t, uint8(gousb.ControlOut)|vendor, usbtiny.RequestTypeOut)
}

func TestClient_Echo(t *testing.T) {
	c, _, _ := startLoader(t)
	got, err := c.Echo(0x0201, 0x0403)
	require.NoError(t, err)
	assert.Equal(t, []byte{usbtiny.RequestTypeIn, byte(usbtiny.Echo), 1, 2, 3, 4, 8, 0}, got)
}

func TestClient_Identify(t *testing.T) {
	c, b, _ := startLoader(t)
	require.NoError(t, c.PowerUp(10, true))
	require.NoError(t, c.Enable())

	sig, err := c.Signature()
	require.NoError(t, err)
	assert.Equal(t, b.Profile.Signature, sig)

	fuses, err := c.Fuses()
	require.NoError(t, err)
	assert.Equal(t, Fuses{
		Low:         0xFF,
		High:        0xD0,
		Extended:    0xFD,
		Lock:        0xEF,
		Calibration: 0x9B,
	}, fuses)
}

func TestClient_ProgramFlash(t *testing.T) {
	var progress []int
	c, b, done := startLoader(t, WithProgress(func(n, total int) {
		progress = append(progress, n)
	}))

	image := make([]byte, 301)
	for i := range image {
		image[i] = byte(i*31 + 7)
	}
	require.NoError(t, c.WriteFlash(0x0040, image))
	assert.Equal(t, []int{64, 192, 301}, progress)

	require.NoError(t, c.VerifyFlash(0x0040, image))
	require.NoError(t, c.PowerDown())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bootloader did not exit")
	}
	assert.Equal(t, image, b.Flash.Bytes()[0x40:0x40+len(image)])
	for _, page := range []uint32{0x080, 0x100} {
		assert.Equal(t, 1, b.Flash.Erases(page), "page %#x", page)
		assert.Equal(t, 1, b.Flash.Writes(page), "page %#x", page)
	}
	assert.True(t, b.Platform.Jumped())
}

func TestClient_EEPROM(t *testing.T) {
	c, b, _ := startLoader(t, WithChunkSize(16))
	data := []byte("serial=0042;mode=fast;")
	require.NoError(t, c.WriteEEPROM(0x10, data))
	assert.Equal(t, data, b.EEPROM.Bytes()[0x10:0x10+len(data)])
	require.NoError(t, c.VerifyEEPROM(0x10, data))
}

func TestClient_VerifyMismatch(t *testing.T) {
	c, b, _ := startLoader(t)
	b.Flash.Load(0x20, []byte{1, 2, 3})

	err := c.VerifyFlash(0x20, []byte{1, 2, 4})
	require.ErrorIs(t, err, ErrVerify)
	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, uint32(0x22), verr.Addr)
	assert.Equal(t, byte(4), verr.Expected)
	assert.Equal(t, byte(3), verr.Actual)
}

func TestClient_AddressRange(t *testing.T) {
	c := NewClient(&mockDevice{})
	_, err := c.ReadFlash(0xFFF0, 32)
	assert.ErrorIs(t, err, ErrAddressRange)
}

type mockDevice struct {
	mock.Mock
}

func (m *mockDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	args := m.Called(rType, request, val, idx, data)
	if reply, ok := args.Get(0).([]byte); ok {
		copy(data, reply)
	}
	return args.Int(1), args.Error(2)
}

func TestClient_EnableNotAcknowledged(t *testing.T) {
	dev := &mockDevice{}
	dev.On("Control", usbtiny.RequestTypeIn, uint8(usbtiny.SPI), uint16(0x53AC), uint16(0), mock.Anything).
		Return([]byte{0, 0, 0, 0}, 4, nil)
	err := NewClient(dev).Enable()
	assert.ErrorIs(t, err, ErrProgrammingEnable)
	dev.AssertExpectations(t)
}

func TestClient_ShortSPIReply(t *testing.T) {
	dev := &mockDevice{}
	dev.On("Control", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, 1, nil)
	_, err := NewClient(dev).Signature()
	assert.ErrorIs(t, err, ErrShortTransfer)
}

func TestClient_TransportError(t *testing.T) {
	dev := &mockDevice{}
	boom := errors.New("pipe stalled")
	dev.On("Control", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, 0, boom)
	err := NewClient(dev).PowerDown()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "power-down")
}
