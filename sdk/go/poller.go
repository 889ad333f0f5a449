package reportsdk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Dashboard refresh cadences.
const (
	StatsPollInterval = 5 * time.Second
	ListPollInterval  = 6 * time.Second
)

// ErrPollInFlight is returned by Poll when the previous fetch has not finished.
var ErrPollInFlight = errors.New("poll already in flight")

// Poller re-runs a fetch on an interval. Fetches never overlap: a tick that
// arrives while one is still running is skipped. A failed fetch keeps the last
// good value and is reported through OnError.
type Poller[T any] struct {
	interval time.Duration
	fetch    func(context.Context) (T, error)

	// OnUpdate and OnError are optional and run on the fetching goroutine.
	// Neither fires once Done is closed.
	OnUpdate func(T)
	OnError  func(error)

	inFlight atomic.Bool

	// deliverMu serializes result delivery with shutdown.
	deliverMu sync.Mutex
	stopped   bool

	mu      sync.RWMutex
	last    T
	hasLast bool
	lastErr error

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. Call Start to begin polling.
func NewPoller[T any](interval time.Duration, fetch func(context.Context) (T, error)) *Poller[T] {
	if interval <= 0 {
		interval = ListPollInterval
	}
	return &Poller[T]{
		interval: interval,
		fetch:    fetch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewReportsPoller polls ListReports with opts.
func NewReportsPoller(c *Client, opts ListOptions) *Poller[[]Report] {
	return NewPoller(ListPollInterval, func(ctx context.Context) ([]Report, error) {
		return c.ListReports(ctx, opts)
	})
}

// NewStatsPoller polls Stats.
func NewStatsPoller(c *Client) *Poller[Stats] {
	return NewPoller(StatsPollInterval, c.Stats)
}

// Start fetches immediately and then on every tick until ctx is cancelled or
// Stop is called. Start must be called at most once.
func (p *Poller[T]) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		defer p.retire()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-p.stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// tick runs a fetch in the background so a slow fetch never blocks the ticker.
func (p *Poller[T]) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.inFlight.Store(false)
		p.run(ctx)
	}()
}

// Poll runs a single fetch synchronously. It returns ErrPollInFlight without
// fetching if another fetch is running. Once a started poller is done, Poll
// still returns the fetch result but no longer records it.
func (p *Poller[T]) Poll(ctx context.Context) (T, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrPollInFlight
	}
	defer p.inFlight.Store(false)
	return p.run(ctx)
}

// retire blocks until any delivery in progress has finished and drops every
// later result.
func (p *Poller[T]) retire() {
	p.deliverMu.Lock()
	p.stopped = true
	p.deliverMu.Unlock()
}

func (p *Poller[T]) run(ctx context.Context) (T, error) {
	value, err := p.fetch(ctx)

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	// a fetch that outlives shutdown is neither recorded nor reported
	if p.stopped || ctx.Err() != nil {
		return value, err
	}
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		if p.OnError != nil {
			p.OnError(err)
		}
		return value, err
	}

	p.mu.Lock()
	p.last = value
	p.hasLast = true
	p.lastErr = nil
	p.mu.Unlock()
	if p.OnUpdate != nil {
		p.OnUpdate(value)
	}
	return value, nil
}

// Last returns the most recent successful result.
func (p *Poller[T]) Last() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

// Err returns the error of the latest fetch, or nil once a fetch succeeds.
func (p *Poller[T]) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Stop ends polling. It is safe to call more than once.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Done is closed when the polling loop has exited.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}
