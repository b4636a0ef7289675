package transmit

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// logThrottle caps how many failure diagnostics are logged per window and
// per failure kind. A nil *logThrottle allows everything.
type logThrottle struct {
	mu          sync.Mutex
	current     map[string]*atomic.Int64
	windowStart time.Time
	window      time.Duration
	max         int64

	suppressed atomic.Int64
}

// newLogThrottle returns nil when limit <= 0.
func newLogThrottle(limit int, window time.Duration) *logThrottle {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Second
	}
	return &logThrottle{
		current:     make(map[string]*atomic.Int64),
		windowStart: time.Now(),
		window:      window,
		max:         int64(limit),
	}
}

// allow reports whether a diagnostic of kind may be logged now, and how
// many were suppressed since the previous window rolled over when this is
// the first diagnostic of a fresh window.
func (l *logThrottle) allow(kind string, now time.Time) (ok bool, suppressed int64) {
	if l == nil {
		return true, 0
	}

	l.mu.Lock()
	if now.Sub(l.windowStart) >= l.window {
		l.current = make(map[string]*atomic.Int64)
		l.windowStart = now
		suppressed = l.suppressed.Swap(0)
	}
	counter, exists := l.current[kind]
	if !exists {
		counter = atomic.NewInt64(0)
		l.current[kind] = counter
	}
	l.mu.Unlock()

	if counter.Inc() > l.max {
		l.suppressed.Inc()
		return false, 0
	}
	return true, suppressed
}
