// Package dispatch runs background alert delivery behind a bounded
// queue. The webhook handler enqueues and returns; workers dedup and
// deliver, and outcomes surface only in logs.
package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bogdan-lmk/twsignals/internal/alert"
	"github.com/bogdan-lmk/twsignals/internal/dedup"
	"github.com/bogdan-lmk/twsignals/internal/telegram"
)

// Sender delivers a formatted alert downstream.
type Sender interface {
	Send(ctx context.Context, p *alert.Payload) (*telegram.SendResult, error)
}

// Options configure the dispatcher.
type Options struct {
	Workers   int
	QueueSize int
}

type task struct {
	payload   *alert.Payload
	requestID string
}

// Dispatcher owns the delivery queue and its workers.
type Dispatcher struct {
	queue   chan task
	workers int
	cache   *dedup.Cache
	sender  Sender
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// New constructs a Dispatcher. The cache and sender are injected; the
// dispatcher never creates shared state of its own.
func New(opts Options, cache *dedup.Cache, sender Sender, logger zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Dispatcher{
		queue:   make(chan task, opts.QueueSize),
		workers: opts.Workers,
		cache:   cache,
		sender:  sender,
		logger:  logger.With().Str("component", "dispatch").Logger(),
	}
}

// Start launches the worker pool. ctx bounds in-flight sends; queued
// tasks are otherwise drained until Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for t := range d.queue {
				d.process(ctx, t)
			}
		}()
	}
}

// Enqueue hands an accepted payload to the workers without blocking.
// It reports false when the queue is saturated or the dispatcher is
// stopped; the task is dropped in that case and only logged, matching
// the fire-and-forget contract.
func (d *Dispatcher) Enqueue(p *alert.Payload, requestID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Error().Str("request_id", requestID).Msg("dispatcher stopped; task dropped")
		return false
	}
	select {
	case d.queue <- task{payload: p, requestID: requestID}:
		return true
	default:
		d.logger.Error().
			Str("request_id", requestID).
			Str("ticker", p.Ticker).
			Int("queue_depth", len(d.queue)).
			Msg("delivery queue saturated; task dropped")
		return false
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// QueueDepth reports the number of tasks waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

func (d *Dispatcher) process(ctx context.Context, t task) {
	logger := d.logger.With().
		Str("request_id", t.requestID).
		Str("ticker", t.payload.Ticker).
		Str("signal", string(t.payload.Signal)).
		Logger()

	if d.cache.CheckAndRecord(t.payload.Fingerprint()) {
		logger.Info().Msg("skipping duplicate alert")
		return
	}

	logger.Debug().Msg("delivering alert")
	result, err := d.sender.Send(ctx, t.payload)
	if err != nil {
		logger.Error().Err(err).Msg("alert delivery failed")
		return
	}
	logger.Info().Int64("message_id", result.MessageID).Msg("alert delivered")
}
