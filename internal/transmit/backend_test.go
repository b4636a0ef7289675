package transmit

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/frame"
)

func TestPcapFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")

	w, err := Open(BackendConfig{Kind: BackendPcap, PcapFile: path})
	require.NoError(t, err)

	tx := New(w)
	for _, p := range []string{"one", "two"} {
		res := tx.Send(context.Background(), 1, srcEP, dstEP, []byte(p), 0)
		require.NoError(t, res.Err)
		assert.Equal(t, res.FrameLen, res.Accepted)
	}
	require.NoError(t, tx.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	_, err = w.WriteTo([]byte{0}, nil)
	assert.True(t, errors.Is(err, core.ErrClosed))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, 45, ci.Length)
	assert.Equal(t, []byte("one"), data[42:])

	data, _, err = r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data[42:])

	_, _, err = r.ReadPacketData()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(BackendConfig{Kind: "carrier-pigeon"})
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestOpenPcapBadPath(t *testing.T) {
	_, err := Open(BackendConfig{Kind: BackendPcap, PcapFile: filepath.Join(t.TempDir(), "missing", "out.pcap")})
	assert.Error(t, err)
}

func TestRingGeometry(t *testing.T) {
	frameSize, blockSize, numBlocks, err := ringGeometry(1, 1500, 4096)
	require.NoError(t, err)
	assert.Equal(t, 1552, frameSize)
	assert.Equal(t, 0, blockSize%4096)
	assert.Equal(t, 0, blockSize%frameSize)
	assert.Equal(t, 2, numBlocks)

	frameSize, blockSize, numBlocks, err = ringGeometry(1, frame.HeaderLen+frame.MaxPayload, 4096)
	require.NoError(t, err)
	assert.Equal(t, 0, frameSize%tpacketAlignment)
	assert.Equal(t, 0, blockSize%4096)
	assert.Equal(t, 0, blockSize%frameSize, "afpacket rejects blocks that do not hold whole frames")
	assert.Equal(t, 69632, frameSize)
	assert.GreaterOrEqual(t, blockSize, frameSize)
	assert.LessOrEqual(t, blockSize, maxBlockSize)
	assert.GreaterOrEqual(t, numBlocks, 1)

	for _, bad := range [][3]int{{0, 1500, 4096}, {1, 0, 4096}, {1, 1500, 100}} {
		_, _, _, err := ringGeometry(bad[0], bad[1], bad[2])
		assert.Error(t, err, "%v", bad)
	}
}
