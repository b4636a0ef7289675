// Package generator drives the transmitter: it paces sends, builds payloads
// and retries failed transmissions.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/stats"
)

// Sender sends one frame. *transmit.Transmitter implements it.
type Sender interface {
	Send(ctx context.Context, ifIndex int, src, dst core.Endpoint, payload []byte, coverage int) core.SendResult
}

// RetryPolicy bounds how often a failed send is repeated.
type RetryPolicy struct {
	MaxAttempts     int // including the first; <= 1 disables retries
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config describes a run.
type Config struct {
	IfIndex int
	Src     core.Endpoint
	Dst     core.Endpoint
	Count   uint64  // 0 = until cancelled
	Rate    float64 // frames per second across all workers, 0 = unpaced
	Workers int     // concurrent senders, at least 1
	Retry   RetryPolicy
}

// Generator sends Count frames.
type Generator struct {
	cfg     Config
	sender  Sender
	payload PayloadSource
	stats   *stats.Stats
	limiter *rate.Limiter
	now     func() time.Time
}

func New(cfg Config, sender Sender, payload PayloadSource, st *stats.Stats) *Generator {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Generator{
		cfg:     cfg,
		sender:  sender,
		payload: payload,
		stats:   st,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Run sends frames until Count is reached or ctx is done. Failed sends are
// retried per the policy and then counted; the run goes on. An invalid frame
// aborts the run since every later frame would be invalid too.
//
// Cancellation ends an unbounded run cleanly; a bounded run reports the
// context error.
func (g *Generator) Run(ctx context.Context) error {
	workers := max(g.cfg.Workers, 1)
	logger := log.GetLogger().WithFields(map[string]interface{}{
		"ifindex": g.cfg.IfIndex,
		"dst":     g.cfg.Dst.String(),
		"workers": workers,
	})
	logger.Infof("sending %s at %s", countString(g.cfg.Count), rateString(g.cfg.Rate))

	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	var (
		claimed  atomic.Uint64
		abortErr error
		once     sync.Once
	)
	claim := func() bool {
		return g.cfg.Count == 0 || claimed.Inc() <= g.cfg.Count
	}

	var wg conc.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Go(func() {
			for claim() {
				if err := g.limiter.Wait(runCtx); err != nil {
					return
				}
				res := g.sendOne(runCtx)
				if errors.Is(res.Err, core.ErrInvalidArgument) {
					once.Do(func() {
						abortErr = res.Err
						abort()
					})
					return
				}
				if runCtx.Err() != nil {
					return
				}
			}
		})
	}
	wg.Wait()

	if abortErr != nil {
		return abortErr
	}
	if ctx.Err() != nil {
		return g.stopped(ctx)
	}
	logger.Info("run complete")
	return nil
}

func (g *Generator) stopped(ctx context.Context) error {
	if g.cfg.Count == 0 {
		return nil
	}
	return ctx.Err()
}

// sendOne sends a single payload, retrying transmission faults.
func (g *Generator) sendOne(ctx context.Context) core.SendResult {
	payload, coverage := g.payload.Next(g.now())

	var (
		res     core.SendResult
		attempt int
	)
	op := func() error {
		if attempt > 0 {
			g.stats.Retry()
		}
		attempt++

		start := time.Now()
		res = g.sender.Send(ctx, g.cfg.IfIndex, g.cfg.Src, g.cfg.Dst, payload, coverage)
		if res.Err == nil {
			g.stats.Record(res, time.Since(start))
			return nil
		}
		if errors.Is(res.Err, core.ErrInvalidArgument) || ctx.Err() != nil {
			return backoff.Permanent(res.Err)
		}
		return res.Err
	}

	// Only the outcome of the final attempt is recorded.
	_ = backoff.Retry(op, g.backoff(ctx))
	if res.Err != nil {
		g.stats.Record(res, 0)
	}
	return res
}

func (g *Generator) backoff(ctx context.Context) backoff.BackOff {
	p := g.cfg.Retry
	if p.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

func countString(n uint64) string {
	if n == 0 {
		return "frames until interrupted"
	}
	if n == 1 {
		return "1 frame"
	}
	return fmt.Sprintf("%d frames", n)
}

func rateString(r float64) string {
	if r <= 0 {
		return "full speed"
	}
	return fmt.Sprintf("%g fps", r)
}
