// Package ratelimit bounds how many requests a client key may make per
// fixed window. A bucket is created on the first request, counts up to the
// limit, and is replaced wholesale once the window has elapsed.
//
// The algorithm lives in Limiter and is storage-agnostic: buckets are kept in
// a Store, which may be process-local (MemoryStore) or shared (RedisStore).
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultLimit is the number of requests admitted per key per window.
	DefaultLimit = 100
	// DefaultWindow is the length of one fixed window.
	DefaultWindow = 24 * time.Hour

	lockStripes = 64
)

// Decision is the outcome of one Check.
// Remaining is meaningful when Allowed; RetryAfter (whole seconds) when not.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter int
	Limit      int
	ResetAt    time.Time
}

// Recorder observes limiter activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveDecision(allowed bool)
	ObserveCleanup(removed int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDecision(bool) {}
func (noopRecorder) ObserveCleanup(int)   {}

// Limiter is a keyed fixed-window rate limiter. It is safe for concurrent use.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
	rec    Recorder
	log    *slog.Logger

	// Serializes the read-modify-write of a bucket for stores that cannot do
	// it atomically themselves. Keys are spread over stripes by hash.
	locks [lockStripes]sync.Mutex

	// Throttles the "rate limit exceeded" warning; a saturated client can
	// otherwise produce one log line per request.
	warn rate.Sometimes
}

// Option configures a Limiter at construction time.
type Option func(*Limiter)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(l *Limiter) { l.limit = n }
}

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock overrides the time source. Tests use it to freeze or advance time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(l *Limiter) {
		if r != nil {
			l.rec = r
		}
	}
}

// WithLogger sets the logger used for saturation warnings and janitor errors.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns a Limiter over store with DefaultLimit and DefaultWindow unless
// overridden by opts.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  DefaultLimit,
		window: DefaultWindow,
		now:    time.Now,
		rec:    noopRecorder{},
		log:    slog.Default(),
	}
	l.warn.Interval = time.Minute
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured number of requests per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Check applies one request to key and reports whether it may proceed.
// A rejection is a Decision with Allowed=false, not an error; the error
// return is reserved for store failures.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	var (
		b       Bucket
		allowed bool
		err     error
	)
	if as, ok := l.store.(AtomicStore); ok {
		b, allowed, err = as.Hit(ctx, key, now, l.limit, l.window)
	} else {
		b, allowed, err = l.hit(ctx, key, now)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit.Limiter.Check: %w", err)
	}

	dec := l.decide(b, allowed, now)
	l.rec.ObserveDecision(allowed)
	if !allowed {
		l.warn.Do(func() {
			l.log.WarnContext(ctx, "rate limit exceeded",
				"key", key,
				"limit", l.limit,
				"retry_after_seconds", dec.RetryAfter,
			)
		})
	}
	return dec, nil
}

// hit is the fixed-window step for plain stores, run under the key's stripe lock.
func (l *Limiter) hit(ctx context.Context, key string, now time.Time) (Bucket, bool, error) {
	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	b, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Bucket{}, false, err
	}

	switch {
	case !ok || l.expired(b, now):
		b = Bucket{Count: 1, WindowStart: now}
	case b.Count < l.limit:
		b.Count++
	default:
		return b, false, nil
	}

	if err := l.store.Set(ctx, key, b); err != nil {
		return Bucket{}, false, err
	}
	return b, true, nil
}

func (l *Limiter) decide(b Bucket, allowed bool, now time.Time) Decision {
	reset := b.WindowStart.Add(l.window)
	if allowed {
		return Decision{
			Allowed:   true,
			Remaining: l.limit - b.Count,
			Limit:     l.limit,
			ResetAt:   reset,
		}
	}
	wait := reset.Sub(now)
	return Decision{
		Allowed:    false,
		RetryAfter: int((wait + time.Second - 1) / time.Second),
		Limit:      l.limit,
		ResetAt:    reset,
	}
}

// expired reports whether b's window has fully elapsed at now. An expired
// bucket is treated exactly like an absent one.
func (l *Limiter) expired(b Bucket, now time.Time) bool {
	return now.Sub(b.WindowStart) >= l.window
}

func (l *Limiter) lockFor(key string) *sync.Mutex {
	return &l.locks[xxhash.Sum64String(key)%lockStripes]
}

// Cleanup removes buckets older than the window and returns how many it
// removed. It only frees memory: every bucket it deletes would already be
// treated as absent by Check. Each candidate is re-checked in the same step
// that deletes it, so a bucket reset by a concurrent Check is never dropped.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	now := l.now()

	var stale []string
	err := l.store.Range(ctx, func(key string, b Bucket) bool {
		if now.Sub(b.WindowStart) > l.window {
			stale = append(stale, key)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("ratelimit.Limiter.Cleanup: range: %w", err)
	}

	removed := 0
	for _, key := range stale {
		ok, err := l.purge(ctx, key, now)
		if err != nil {
			return removed, fmt.Errorf("ratelimit.Limiter.Cleanup: %w", err)
		}
		if ok {
			removed++
		}
	}

	l.rec.ObserveCleanup(removed)
	return removed, nil
}

// purge deletes key if it is still stale. An AtomicStore does the re-check
// and delete as one step, since its Check path takes no local lock.
func (l *Limiter) purge(ctx context.Context, key string, now time.Time) (bool, error) {
	if as, ok := l.store.(AtomicStore); ok {
		return as.DeleteIfStale(ctx, key, now.Add(-l.window))
	}

	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	b, ok, err := l.store.Get(ctx, key)
	if err != nil || !ok || now.Sub(b.WindowStart) <= l.window {
		return false, err
	}
	if err := l.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// StartJanitor runs Cleanup every interval in a new goroutine until ctx is
// done. A non-positive interval disables it.
func (l *Limiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				removed, err := l.Cleanup(ctx)
				if err != nil {
					l.log.ErrorContext(ctx, "rate limit cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					l.log.DebugContext(ctx, "rate limit cleanup", "removed", removed)
				}
			}
		}
	}()
}
