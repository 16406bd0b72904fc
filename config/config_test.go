package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/isploader/boot"
)

func TestLoad(t *testing.T) {
	c, err := Load("testdata/trinket.yaml")
	require.NoError(t, err)
	assert.Equal(t, "atmega328p", c.Chip)
	assert.Equal(t, 12*physic.MegaHertz, c.Clock.Frequency)
	assert.Equal(t, uint8(8), c.Timeout)
	assert.False(t, c.CleanExit)
	assert.Equal(t, boot.Features{
		FlashRead:     true,
		FlashWrite:    true,
		EEPROMRead:    true,
		SignatureRead: true,
	}, c.Features)
	assert.Equal(t, "gpio:GPIO17", c.LED)
	assert.Equal(t, uint16(11718), c.TicksPerSecond())
}

func TestParse_KeepsDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader("timeout: 2\n"))
	require.NoError(t, err)
	expected := Default()
	expected.Timeout = 2
	assert.Equal(t, expected, c)
	assert.Equal(t, uint16(15625), c.TicksPerSecond())
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		given string
		err   error
	}{
		{"unknown chip", "chip: attiny85\n", ErrUnknownChip},
		{"clock too fast", "clock: 100MHz\n", ErrClock},
		{"clock too slow", "clock: 1kHz\n", ErrClock},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.given))
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, given := range []string{"clock: fast\n", "colour: red\n"} {
		_, err := Parse(strings.NewReader(given))
		assert.Error(t, err, given)
	}
}

func TestFrequency_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(out), "clock: 16MHz")
}

func TestOptions(t *testing.T) {
	c := Default()
	c.Chip = "atmega644p"
	opts, err := c.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 6)

	c.Chip = "attiny13"
	_, err = c.Options()
	assert.ErrorIs(t, err, ErrUnknownChip)
}

func TestChips(t *testing.T) {
	list := Chips()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].FlashSize, list[i].FlashSize)
	}
	c, err := LookupChip("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "1E 95 0F", c.SignatureString())
	assert.Equal(t, 28*1024, c.AppSize())
	assert.Equal(t, c.Signature, c.Profile().Signature)
}
