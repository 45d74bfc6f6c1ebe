package engine

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storelens/storelens/internal/metrics"
)

// ErrBucketStopped is returned for tasks still queued when a bucket stops.
var ErrBucketStopped = errors.New("rate limiter stopped")

const minInterval = 10 * time.Millisecond

// BucketOptions is the effective configuration of a token bucket.
type BucketOptions struct {
	MaxRequestsPerInterval int           `json:"max_requests_per_interval" yaml:"max_requests_per_interval"`
	Interval               time.Duration `json:"interval" yaml:"interval"`
	MaxConcurrency         int           `json:"max_concurrency" yaml:"max_concurrency"`
}

// DefaultBucketOptions applies to any scope without explicit settings.
var DefaultBucketOptions = BucketOptions{
	MaxRequestsPerInterval: 5,
	Interval:               time.Second,
	MaxConcurrency:         5,
}

// BucketPatch is a partial update. Nil fields keep their current value.
type BucketPatch struct {
	MaxRequestsPerInterval *int           `mapstructure:"max_requests_per_interval"`
	Interval               *time.Duration `mapstructure:"interval"`
	MaxConcurrency         *int           `mapstructure:"max_concurrency"`
}

// Normalize clamps options to their minimums.
func (o BucketOptions) Normalize() BucketOptions {
	if o.MaxRequestsPerInterval < 1 {
		o.MaxRequestsPerInterval = 1
	}
	if o.Interval < minInterval {
		o.Interval = minInterval
	}
	if o.MaxConcurrency < 1 {
		o.MaxConcurrency = 1
	}
	return o
}

// Apply merges a patch into the options and clamps the result.
func (o BucketOptions) Apply(p BucketPatch) BucketOptions {
	if p.MaxRequestsPerInterval != nil {
		o.MaxRequestsPerInterval = *p.MaxRequestsPerInterval
	}
	if p.Interval != nil {
		o.Interval = *p.Interval
	}
	if p.MaxConcurrency != nil {
		o.MaxConcurrency = *p.MaxConcurrency
	}
	return o.Normalize()
}

// Patch returns a patch that sets every field to the current value.
func (o BucketOptions) Patch() BucketPatch {
	capacity, interval, concurrency := o.MaxRequestsPerInterval, o.Interval, o.MaxConcurrency
	return BucketPatch{
		MaxRequestsPerInterval: &capacity,
		Interval:               &interval,
		MaxConcurrency:         &concurrency,
	}
}

// IsZero reports whether the patch changes nothing.
func (p BucketPatch) IsZero() bool {
	return p.MaxRequestsPerInterval == nil && p.Interval == nil && p.MaxConcurrency == nil
}

// BucketStats is a point-in-time view of a bucket.
type BucketStats struct {
	Scope    Scope         `json:"scope"`
	Options  BucketOptions `json:"options"`
	Tokens   int           `json:"tokens"`
	InFlight int           `json:"in_flight"`
	Queued   int           `json:"queued"`
	Running  bool          `json:"running"`
}

// TokenBucket admits queued tasks in FIFO order while a token is available
// and fewer than MaxConcurrency tasks are running. Tokens are reset to
// capacity every interval; unused tokens do not accumulate.
type TokenBucket struct {
	scope Scope

	mu       sync.Mutex
	opts     BucketOptions
	tokens   int
	inFlight int
	queue    list.List
	running  bool
	stopped  bool
	stopCh   chan struct{}
	wake     chan struct{}
}

type pendingTask struct {
	ctx      context.Context
	run      func(context.Context) error
	result   chan error
	elem     *list.Element
	queuedAt time.Time
}

// NewTokenBucket returns a bucket that starts full. The refill loop starts on
// the first Schedule call.
func NewTokenBucket(scope Scope, opts BucketOptions) *TokenBucket {
	opts = opts.Normalize()
	return &TokenBucket{
		scope:  scope,
		opts:   opts,
		tokens: opts.MaxRequestsPerInterval,
		stopCh: make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// Scope returns the bucket scope.
func (b *TokenBucket) Scope() Scope {
	return b.scope
}

// Schedule queues task and blocks until it has run, returning its error.
// A task whose context ends while still queued is removed from the queue and
// never runs.
func (b *TokenBucket) Schedule(ctx context.Context, task func(context.Context) error) error {
	if task == nil {
		return errors.New("task is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p := &pendingTask{
		ctx:      ctx,
		run:      task,
		result:   make(chan error, 1),
		queuedAt: time.Now(),
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrBucketStopped
	}
	b.startLocked()
	p.elem = b.queue.PushBack(p)
	metrics.SetRateLimitQueueDepth(string(b.scope), b.queue.Len())
	b.mu.Unlock()

	b.drain()

	select {
	case err := <-p.result:
		return err
	case <-ctx.Done():
		b.mu.Lock()
		if p.elem != nil {
			b.queue.Remove(p.elem)
			p.elem = nil
			metrics.SetRateLimitQueueDepth(string(b.scope), b.queue.Len())
			b.mu.Unlock()
			return ctx.Err()
		}
		b.mu.Unlock()
		return <-p.result
	}
}

// Configure merges a patch into the bucket options. Consumed tokens and
// running tasks are left alone; tokens above a lowered capacity are dropped.
func (b *TokenBucket) Configure(p BucketPatch) {
	b.mu.Lock()
	previous := b.opts
	b.opts = b.opts.Apply(p)
	if b.tokens > b.opts.MaxRequestsPerInterval {
		b.tokens = b.opts.MaxRequestsPerInterval
	}
	intervalChanged := previous.Interval != b.opts.Interval && b.running
	b.mu.Unlock()

	if intervalChanged {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
	b.drain()
}

// Options returns the effective options.
func (b *TokenBucket) Options() BucketOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts
}

// Stats returns a snapshot of the bucket state.
func (b *TokenBucket) Stats() BucketStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BucketStats{
		Scope:    b.scope,
		Options:  b.opts,
		Tokens:   b.tokens,
		InFlight: b.inFlight,
		Queued:   b.queue.Len(),
		Running:  b.running,
	}
}

// Stop halts the refill loop. Tasks still queued fail with ErrBucketStopped;
// running tasks complete normally.
func (b *TokenBucket) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.running = false
	close(b.stopCh)

	var pending []*pendingTask
	for e := b.queue.Front(); e != nil; e = e.Next() {
		p := e.Value.(*pendingTask)
		p.elem = nil
		pending = append(pending, p)
	}
	b.queue.Init()
	metrics.SetRateLimitQueueDepth(string(b.scope), 0)
	b.mu.Unlock()

	for _, p := range pending {
		p.result <- ErrBucketStopped
	}
}

func (b *TokenBucket) startLocked() {
	if b.running || b.stopped {
		return
	}
	b.running = true
	go b.refillLoop(b.opts.Interval)
}

func (b *TokenBucket) refillLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-b.wake:
			b.mu.Lock()
			next := b.opts.Interval
			b.mu.Unlock()
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		case <-ticker.C:
			b.refill()
		}
	}
}

func (b *TokenBucket) refill() {
	b.mu.Lock()
	b.tokens = b.opts.MaxRequestsPerInterval
	b.mu.Unlock()
	b.drain()
}

func (b *TokenBucket) drain() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.queue.Len() > 0 && b.tokens > 0 && b.inFlight < b.opts.MaxConcurrency {
		p := b.queue.Remove(b.queue.Front()).(*pendingTask)
		p.elem = nil
		b.tokens--
		b.inFlight++
		go b.execute(p)
	}
	metrics.SetRateLimitQueueDepth(string(b.scope), b.queue.Len())
}

func (b *TokenBucket) execute(p *pendingTask) {
	metrics.RecordRateLimitWait(string(b.scope), time.Since(p.queuedAt))

	err := invoke(p)

	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()

	p.result <- err
	b.drain()
}

func invoke(p *pendingTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rate limited task panicked: %v", r)
		}
	}()
	return p.run(p.ctx)
}
