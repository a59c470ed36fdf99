package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Do once the dispatcher's workers have exited.
var ErrStopped = errors.New("dispatcher stopped")

type job struct {
	ctx      context.Context
	key      string
	fn       func(ctx context.Context) error
	done     chan error
	enqueued time.Time
}

// Dispatcher routes writes to a fixed set of workers using consistent hashing
// on the event id, guaranteeing that writes to one event never run concurrently.
type Dispatcher struct {
	workers []chan job
	stopped chan struct{}
	once    sync.Once
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan job, numWorkers),
		stopped: make(chan struct{}),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.once.Do(func() { close(d.stopped) })
	}()
}

// Do runs fn on the worker responsible for key and waits for its result.
// Do returns ctx.Err() as soon as ctx ends. A job still queued at that point is
// skipped; one a worker already picked up runs to completion.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	idx := d.shardIndex(key)
	j := job{ctx: ctx, key: key, fn: fn, done: make(chan error, 1), enqueued: time.Now()}

	select {
	case d.workers[idx] <- j:
		metrics.DispatchQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		// The worker may still be finishing this job; prefer its result.
		select {
		case err := <-j.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	depth := metrics.DispatchQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ch:
			depth.Set(float64(len(ch)))
			if err := j.ctx.Err(); err != nil {
				// The caller gave up while the job was queued.
				j.done <- err
				continue
			}
			metrics.DispatchWaitSeconds.Observe(time.Since(j.enqueued).Seconds())
			j.done <- d.run(j)
		}
	}
}

func (d *Dispatcher) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("key", j.key).Msg("dispatched write panicked")
			err = errors.New("dispatched write panicked")
		}
	}()
	if err := j.fn(context.WithoutCancel(j.ctx)); err != nil {
		d.log.Debug().Err(err).Str("key", j.key).Msg("dispatched write failed")
		return err
	}
	return nil
}

// Inline runs fn directly on the caller's goroutine. It is used when writes
// need no in-process serialization, leaving the version check as the only guard.
type Inline struct{}

func (Inline) Do(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
