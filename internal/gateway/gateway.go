package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/TickerGate/internal/ratelimit"
)

// Operation is an opaque unit of work queued for a rate-limited service.
// It performs its own error classification; the gateway never interprets
// the returned error.
type Operation func() (any, error)

// Config holds the static rate parameters for one external service.
type Config struct {
	Name          string
	Rate          float64       // bucket refill, requests per second
	Burst         int           // bucket capacity
	Workers       int           // worker pool size, default 1
	MinDelay      time.Duration // extra pacing floor after each completed call
	QueueCapacity int           // pending request cap, default 100
}

// Hooks are optional instrumentation callbacks. Nil fields are skipped.
type Hooks struct {
	OnEnqueue  func(service string, depth int)
	OnDequeue  func(service string, depth int, queued time.Duration)
	OnLimited  func(service string, wait time.Duration)
	OnComplete func(service string, err error)
}

type queueItem struct {
	id       string
	op       Operation
	done     chan struct{}
	result   any
	err      error
	enqueued time.Time
}

// Gateway owns one token bucket, one bounded FIFO request queue, and a fixed
// worker pool, all bound to a single external service. Callers round-trip
// synchronously through Execute; workers apply the bucket before each call.
// With one worker (the default) requests are strictly serialized.
type Gateway struct {
	name     string
	bucket   *ratelimit.TokenBucket
	items    chan *queueItem
	minDelay time.Duration
	nworkers int

	stop    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup // submitters between the intake check and enqueue
	workers sync.WaitGroup

	hooks Hooks
	log   zerolog.Logger
}

// New builds the gateway and starts its workers.
func New(cfg Config, logger zerolog.Logger, hooks Hooks) (*Gateway, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("gateway: %w", ErrNoName)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}

	bucket, err := ratelimit.New(cfg.Name, cfg.Rate, cfg.Burst, logger)
	if err != nil {
		return nil, fmt.Errorf("gateway %q: %w", cfg.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		name:     cfg.Name,
		bucket:   bucket,
		items:    make(chan *queueItem, cfg.QueueCapacity),
		minDelay: cfg.MinDelay,
		nworkers: cfg.Workers,
		stop:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		hooks:    hooks,
		log:      logger.With().Str("gateway", cfg.Name).Logger(),
	}

	for i := 0; i < cfg.Workers; i++ {
		g.workers.Add(1)
		go g.worker(i + 1)
	}
	g.log.Info().
		Int("workers", cfg.Workers).
		Int("queue_capacity", cfg.QueueCapacity).
		Dur("min_delay", cfg.MinDelay).
		Msg("gateway started")
	return g, nil
}

// Name returns the service identifier this gateway is bound to.
func (g *Gateway) Name() string { return g.name }

// Execute queues op and blocks the caller until a worker has run it,
// returning its result or error verbatim. If the queue is full the caller
// blocks until space frees; that backpressure is deliberate. Returns
// ErrShuttingDown if the gateway is torn down before op ran.
func (g *Gateway) Execute(op Operation) (any, error) {
	return g.run(op, true)
}

// TryExecute is Execute without the backpressure: a full queue fails
// immediately with ErrQueueFull instead of blocking the caller.
func (g *Gateway) TryExecute(op Operation) (any, error) {
	return g.run(op, false)
}

func (g *Gateway) run(op Operation, block bool) (any, error) {
	item, err := g.submit(op, block)
	if err != nil {
		return nil, err
	}
	<-item.done
	return item.result, item.err
}

func (g *Gateway) submit(op Operation, block bool) (*queueItem, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrShuttingDown
	}
	g.pending.Add(1)
	g.mu.Unlock()
	defer g.pending.Done()

	item := &queueItem{
		id:       uuid.NewString(),
		op:       op,
		done:     make(chan struct{}),
		enqueued: time.Now(),
	}

	if block {
		select {
		case g.items <- item:
		case <-g.stop:
			return nil, ErrShuttingDown
		}
	} else {
		select {
		case g.items <- item:
		case <-g.stop:
			return nil, ErrShuttingDown
		default:
			return nil, ErrQueueFull
		}
	}

	g.log.Debug().Str("request_id", item.id).Int("depth", len(g.items)).Msg("request queued")
	if g.hooks.OnEnqueue != nil {
		g.hooks.OnEnqueue(g.name, len(g.items))
	}
	return item, nil
}

func (g *Gateway) worker(n int) {
	defer g.workers.Done()
	log := g.log.With().Int("worker", n).Logger()

	for {
		// Checked first so a worker never steals an item the shutdown
		// drain is about to fail.
		select {
		case <-g.stop:
			return
		default:
		}

		select {
		case <-g.stop:
			return
		case item := <-g.items:
			g.process(log, item)
			g.pause()
		}
	}
}

func (g *Gateway) process(log zerolog.Logger, item *queueItem) {
	// The dequeue select can pick an item over a closed stop channel; queued
	// items are failed during shutdown, never executed.
	select {
	case <-g.stop:
		item.err = ErrShuttingDown
		close(item.done)
		return
	default:
	}

	queued := time.Since(item.enqueued)
	if g.hooks.OnDequeue != nil {
		g.hooks.OnDequeue(g.name, len(g.items), queued)
	}

	wait, err := g.bucket.Acquire(g.ctx, 1)
	if err != nil {
		item.err = ErrShuttingDown
		close(item.done)
		return
	}
	if wait > 0 {
		log.Info().Str("request_id", item.id).Dur("wait", wait).Msg("request waited on rate limit")
		if g.hooks.OnLimited != nil {
			g.hooks.OnLimited(g.name, wait)
		}
	}

	item.result, item.err = invoke(item.op)
	if item.err != nil {
		log.Error().Str("request_id", item.id).Err(item.err).Msg("queued request failed")
	}
	if g.hooks.OnComplete != nil {
		g.hooks.OnComplete(g.name, item.err)
	}
	close(item.done)
}

// invoke shields the worker loop from panicking operations.
func invoke(op Operation) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op()
}

// pause applies the per-worker pacing floor between requests.
func (g *Gateway) pause() {
	if g.minDelay <= 0 {
		return
	}
	t := time.NewTimer(g.minDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-g.stop:
	}
}

// Stats returns a snapshot of the gateway's bucket and queue.
func (g *Gateway) Stats() Stats {
	return Stats{
		Service:    g.name,
		Bucket:     g.bucket.Stats(),
		QueueDepth: len(g.items),
		Workers:    g.nworkers,
	}
}

// Shutdown stops intake, wakes blocked submitters with ErrShuttingDown, lets
// in-flight operations finish, joins workers for at most timeout, and fails
// every still-queued item. No caller is left blocked; an operation that hangs
// past the timeout keeps exactly its own caller waiting.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	close(g.stop)
	g.cancel()
	g.pending.Wait()

	joined := make(chan struct{})
	go func() {
		g.workers.Wait()
		close(joined)
	}()

	var err error
	select {
	case <-joined:
	case <-time.After(timeout):
		err = fmt.Errorf("gateway %q: %w", g.name, ErrJoinTimeout)
	}

	dropped := 0
	for {
		select {
		case item := <-g.items:
			item.err = ErrShuttingDown
			close(item.done)
			dropped++
		default:
			g.log.Info().Int("dropped", dropped).Err(err).Msg("gateway shut down")
			return err
		}
	}
}

// Do runs fn through g with a typed result instead of Execute's any.
func Do[T any](g *Gateway, fn func() (T, error)) (T, error) {
	res, err := g.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	// res is nil when fn returned a nil interface value.
	v, _ := res.(T)
	return v, nil
}
