package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlash_ProgramPage(t *testing.T) {
	trace := &Trace{}
	f := NewFlash(1024, 64, 2, trace)

	f.ErasePage(0x40)
	assert.True(t, f.Busy())
	assert.True(t, f.Busy())
	assert.False(t, f.Busy())
	f.FillWord(0x40, 0x2211)
	f.FillWord(0x43, 0x4433) // low bit ignored
	f.WritePage(0x7E)

	assert.Equal(t, byte(0xFF), f.ReadCode(0x40), "read while section busy")
	f.EnableRWW()
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0xFF}, f.Bytes()[0x40:0x45])
	assert.Equal(t, byte(0x11), f.ReadCode(0x40))
	assert.Equal(t, 1, f.Erases(0x40))
	assert.Equal(t, 1, f.Writes(0x40))
	assert.Equal(t, []Kind{KindErase, KindFill, KindFill, KindWrite, KindRWW}, trace.Kinds())
}

func TestFlash_WriteWithoutEraseOnlyClearsBits(t *testing.T) {
	f := NewFlash(256, 64, 0, nil)
	f.Load(0, []byte{0xF0, 0x0F})
	f.FillWord(0, 0x3CC3)
	f.WritePage(0)
	f.EnableRWW()
	assert.Equal(t, []byte{0xC0, 0x0C}, f.Bytes()[:2])
}

func TestFlash_AddressesWrap(t *testing.T) {
	f := NewFlash(256, 64, 0, nil)
	f.Load(0, []byte{0x5A})
	assert.Equal(t, byte(0x5A), f.ReadCode(256))
}

func TestEEPROM_ReadWrite(t *testing.T) {
	trace := &Trace{}
	e := NewEEPROM(512, trace)
	assert.Equal(t, byte(0xFF), e.ReadEEPROM(10))
	e.WriteEEPROM(10, 0x42)
	e.WriteEEPROM(512+11, 0x43)
	assert.Equal(t, byte(0x42), e.ReadEEPROM(10))
	assert.Equal(t, byte(0x43), e.ReadEEPROM(11))
	assert.Equal(t, 2, trace.Count(KindEEPROMWrite))
}

func TestSignatureRow(t *testing.T) {
	r := NewSignatureRow(ATmega328P)
	assert.Equal(t, byte(0x1E), r.SignatureByte(0))
	assert.Equal(t, byte(0x9B), r.SignatureByte(1))
	assert.Equal(t, byte(0x95), r.SignatureByte(2))
	assert.Equal(t, byte(0x0F), r.SignatureByte(4))
	assert.Equal(t, byte(0xFF), r.SignatureByte(6))
}

func TestTimer_Virtual(t *testing.T) {
	tm := NewVirtualTimer(10, nil)
	assert.Zero(t, tm.Count(), "stopped timer does not count")
	tm.Start()
	assert.Equal(t, uint16(10), tm.Count())
	assert.Equal(t, uint16(20), tm.Count())
	tm.Reset()
	assert.Equal(t, uint16(10), tm.Count())
	tm.Stop()
	assert.Zero(t, tm.Count())
}

func TestHex_RoundTrip(t *testing.T) {
	f := NewFlash(1024, 64, 0, nil)
	image := []byte{0x0C, 0x94, 0x34, 0x00, 0x0C, 0x94, 0x46, 0x00, 0x11, 0x24}
	f.Load(0x100, image)

	var buf bytes.Buffer
	require.NoError(t, f.DumpHex(&buf))
	assert.Contains(t, buf.String(), ":00000001FF")

	g := NewFlash(1024, 64, 0, nil)
	require.NoError(t, g.LoadHex(&buf))
	assert.Equal(t, f.Bytes(), g.Bytes())
}

func TestReadHex_Invalid(t *testing.T) {
	_, err := ReadHex(bytes.NewBufferString(":zz\n"))
	assert.Error(t, err)
}
