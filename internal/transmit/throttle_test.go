package transmit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/pulse/internal/core"
)

func TestLogThrottleNilWhenDisabled(t *testing.T) {
	l := newLogThrottle(0, time.Second)
	assert.Nil(t, l)

	ok, _ := l.allow("failed", time.Now())
	assert.True(t, ok, "nil throttle allows everything")
}

func TestLogThrottleWindow(t *testing.T) {
	l := newLogThrottle(2, 10*time.Second)
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, _ := l.allow("failed", now)
		assert.True(t, ok)
	}
	ok, _ := l.allow("failed", now)
	assert.False(t, ok)
	ok, _ = l.allow("failed", now)
	assert.False(t, ok)

	ok, _ = l.allow("short", now)
	assert.True(t, ok, "kinds are counted independently")

	ok, suppressed := l.allow("failed", now.Add(11*time.Second))
	assert.True(t, ok)
	assert.Equal(t, int64(2), suppressed)
}

func TestSendWithFailureLogLimit(t *testing.T) {
	w := &fakeWriter{err: errors.New("link down")}
	tx := New(w, WithFailureLogLimit(1, time.Minute))

	for i := 0; i < 3; i++ {
		res := tx.Send(context.Background(), 1, srcEP, dstEP, []byte("x"), 0)
		assert.True(t, errors.Is(res.Err, core.ErrSendFailed), "throttling never hides the result")
	}
	assert.Len(t, w.frames, 3)
	assert.Equal(t, int64(2), tx.throttle.suppressed.Load())
}
