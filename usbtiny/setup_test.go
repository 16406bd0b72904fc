package usbtiny

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetup(t *testing.T) {
	s, err := ParseSetup([]byte{0xC0, 0x09, 0x34, 0x12, 0x10, 0x00, 0x80, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xC0), s.RequestType)
	assert.Equal(t, FlashRead, s.Request)
	assert.Equal(t, uint16(0x1234), s.Value)
	assert.Equal(t, uint16(0x0010), s.Index)
	assert.Equal(t, uint16(0x80), s.Length)
	assert.True(t, s.IsIn())
	assert.Equal(t, [SetupSize]byte{0xC0, 0x09, 0x34, 0x12, 0x10, 0x00, 0x80, 0x00}, s.Bytes())
}

func TestParseSetup_TooShort(t *testing.T) {
	_, err := ParseSetup([]byte{0xC0, 0x09})
	assert.ErrorIs(t, err, ErrSetupTooShort)
}

func TestSetup_Instruction(t *testing.T) {
	value, index := ReadSignature(2).Value()
	s := Setup{RequestType: RequestTypeIn, Request: SPI, Value: value, Index: index, Length: 4}
	assert.Equal(t, Instruction{0x30, 0x00, 0x02, 0x00}, s.Instruction())
	assert.False(t, Setup{RequestType: RequestTypeOut}.IsIn())
}

func TestRequest_String(t *testing.T) {
	tests := []struct {
		given    Request
		expected string
	}{
		{Echo, "echo"},
		{PowerDown, "power-down"},
		{FlashWrite, "flash-write"},
		{SPI1, "spi1"},
		{Request(0x42), "unknown"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.given.String())
		})
	}
}

func TestRequest_IsStreamed(t *testing.T) {
	for r := Echo; r <= SPI1; r++ {
		streamed := r == FlashRead || r == FlashWrite || r == EEPROMRead || r == EEPROMWrite
		assert.Equal(t, streamed, r.IsStreamed(), r.String())
	}
	assert.True(t, FlashWrite.IsWrite())
	assert.True(t, EEPROMWrite.IsWrite())
	assert.False(t, FlashRead.IsWrite())
}
