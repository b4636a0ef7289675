package probe

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pulse/internal/core"
)

func TestMarshalRoundTrip(t *testing.T) {
	p := Probe{
		RunID:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Control: true,
		Seq:     300,
		Sent:    time.Unix(1700000000, 123456789),
		Stamps:  2,
	}

	payload, coverage := p.Marshal(nil, 256)
	require.Len(t, payload, 256)
	require.Greater(t, coverage, 0)
	assert.Less(t, coverage, 64)
	assert.Equal(t, make([]byte, 256-coverage), payload[coverage:], "padding must be zero")

	got, err := Unmarshal(payload)
	require.NoError(t, err)
	assert.Equal(t, p.RunID, got.RunID)
	assert.True(t, got.Control)
	assert.Equal(t, uint64(300), got.Seq)
	assert.True(t, p.Sent.Equal(got.Sent))
	assert.Equal(t, uint32(2), got.Stamps)
}

func TestMarshalSmallSize(t *testing.T) {
	p := Probe{RunID: uuid.New(), Seq: 1}
	payload, coverage := p.Marshal(nil, 4)
	assert.Equal(t, len(payload), coverage)

	got, err := Unmarshal(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Seq)
	assert.True(t, got.Sent.IsZero())
}

func TestMarshalReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 512)
	for i := range buf[:cap(buf)] {
		buf[:cap(buf)][i] = 0xff
	}

	p := Probe{RunID: uuid.New(), Seq: 9}
	payload, coverage := p.Marshal(buf, 128)
	assert.Equal(t, &buf[:1][0], &payload[0], "expected dst to be reused")
	assert.Equal(t, make([]byte, 128-coverage), payload[coverage:])
}

func TestUnmarshalCorrupt(t *testing.T) {
	p := Probe{RunID: uuid.New(), Seq: 5}
	payload, coverage := p.Marshal(nil, 0)

	_, err := Unmarshal(payload[:coverage-1])
	assert.True(t, errors.Is(err, core.ErrInvalidArgument), "got %v", err)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	p := Probe{RunID: uuid.New(), Seq: 77}
	payload, _ := p.Marshal(nil, 0)
	// field 15, bytes, "x"
	payload = append(payload, 0x7a, 0x01, 'x')

	got, err := Unmarshal(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), got.Seq)
}

func TestString(t *testing.T) {
	p := Probe{
		RunID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Seq:   3,
		Sent:  time.Unix(10, 20),
	}
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8:0:3:0 10:20", p.String())
}

func TestSequencerConcurrent(t *testing.T) {
	s := NewSequencer()
	seen := make(map[uint64]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p := s.Next(time.Now())
				mu.Lock()
				seen[p.Seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
	assert.True(t, seen[1])
	assert.True(t, seen[800])
	assert.Equal(t, s.RunID(), s.Next(time.Now()).RunID)
}
