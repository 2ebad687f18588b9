package peer

import (
	"context"
	"math/rand"
	"time"
)

// DefaultIdleTimeout is the quiet period before a DWR is sent (RFC 3539
// §3.4's Tw, defaulting to 30s in most deployments).
const DefaultIdleTimeout = 30 * time.Second

// DefaultAnswerTimeout bounds how long Watchdog waits for a DWA once a
// DWR has been sent.
const DefaultAnswerTimeout = 10 * time.Second

// DefaultMaxPendingFailures is how many consecutive missed/errored DWAs
// a peer tolerates before Watchdog calls OnDead.
const DefaultMaxPendingFailures = 3

// jitter applies +/-10% to d, so peers sharing an idle timeout do not
// send their DWRs in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := d / 10
	delta := time.Duration(rand.Int63n(int64(2*spread+1))) - spread
	next := d + delta
	if next < 0 {
		return 0
	}
	return next
}

// Watchdog implements the RFC 3539 device-watchdog behavior for one
// peer connection: Kick resets the idle timer on every send/receive, so
// DWR only fires during genuine silence.
type Watchdog struct {
	IdleTimeout        time.Duration
	AnswerTimeout      time.Duration
	MaxPendingFailures int

	SendDWR  func(ctx context.Context) error
	AwaitDWA func(ctx context.Context, timeout time.Duration) bool
	OnDead   func()

	kick            chan struct{}
	pendingFailures int
}

// NewWatchdog builds a Watchdog set to DefaultIdleTimeout,
// DefaultAnswerTimeout and DefaultMaxPendingFailures.
func NewWatchdog() *Watchdog {
	return &Watchdog{
		IdleTimeout:        DefaultIdleTimeout,
		AnswerTimeout:      DefaultAnswerTimeout,
		MaxPendingFailures: DefaultMaxPendingFailures,
		kick:               make(chan struct{}, 1),
	}
}

// Kick resets the idle timer; call it whenever any message (not just a
// DWA) is sent or received on the peer connection.
func (w *Watchdog) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled or the peer is declared dead via OnDead.
func (w *Watchdog) Run(ctx context.Context) {
	if w.kick == nil {
		w.kick = make(chan struct{}, 1)
	}
	timer := time.NewTimer(jitter(w.IdleTimeout))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(jitter(w.IdleTimeout))
		case <-timer.C:
			ok := w.SendDWR(ctx) == nil && w.AwaitDWA(ctx, w.AnswerTimeout)
			if ok {
				w.pendingFailures = 0
			} else {
				w.pendingFailures++
				if w.pendingFailures >= w.MaxPendingFailures {
					if w.OnDead != nil {
						w.OnDead()
					}
					return
				}
			}
			timer.Reset(jitter(w.IdleTimeout))
		}
	}
}

// PendingFailures reports the current consecutive-miss count, exposed
// for tests and diagnostics.
func (w *Watchdog) PendingFailures() int { return w.pendingFailures }
