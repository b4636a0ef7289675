package checksum

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"empty", nil, 0xffff},
		{"rfc1071 example", []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, 0x220d},
		{"odd single byte", []byte{0x01}, 0xfeff},
		{"odd trailing byte", []byte{0x00, 0x01, 0x02}, 0xfdfe},
		{"carry fold", []byte{0xff, 0xff, 0x00, 0x01}, 0xfffe},
		{"all ones", []byte{0xff, 0xff, 0xff, 0xff}, 0x0000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Checksum(tt.data))
		})
	}
}

func TestChecksumIPv4HeaderSelfVerifies(t *testing.T) {
	hdr := []byte{
		0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00,
		0x40, 0x11, 0x00, 0x00, 0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0xc7,
	}

	sum := Checksum(hdr)
	require.Equal(t, uint16(0xb861), sum)

	binary.BigEndian.PutUint16(hdr[10:12], sum)
	assert.Equal(t, uint16(0), Checksum(hdr))
}

func TestChecksumDeterministic(t *testing.T) {
	data := make([]byte, 1501)
	rand.New(rand.NewSource(7)).Read(data)

	first := Checksum(data)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Checksum(data))
	}
}

func TestAccumulatorChunks(t *testing.T) {
	data := make([]byte, 257)
	rand.New(rand.NewSource(11)).Read(data)

	var acc Accumulator
	acc.AddBytes(data[:100])
	acc.AddBytes(data[100:200])
	acc.AddBytes(data[200:])

	assert.Equal(t, Checksum(data), acc.Checksum())
}

func TestAccumulatorFoldRepeats(t *testing.T) {
	var acc Accumulator
	// 0x2fffd folds to 0xffff.
	for i := 0; i < 3; i++ {
		acc.AddWord(0xffff)
	}
	assert.Equal(t, uint16(0xffff), acc.Fold())
	assert.Equal(t, uint16(0x0000), acc.Checksum())

	var big Accumulator
	for i := 0; i < 1<<20; i++ {
		big.AddWord(0xffff)
	}
	assert.Equal(t, uint16(0xffff), big.Fold())
}
