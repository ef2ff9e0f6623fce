package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aircanary/aircanary/logger"
	"github.com/aircanary/aircanary/metrics"
)

// Notifier delivers one notification. Implementations own their transport
// timeouts; the dispatcher only bounds the overall attempt.
type Notifier interface {
	Notify(ctx context.Context, intent *Intent) error
}

// Dispatcher consumes notification intents asynchronously, decoupled from the
// ingestion request path. Each intent gets at most one best-effort delivery
// attempt; failures are logged and never propagate back to the caller.
type Dispatcher struct {
	notifier   Notifier
	intentChan chan *Intent
	workers    int
	timeout    time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	sent   atomic.Uint64
	failed atomic.Uint64
}

// Config holds dispatcher configuration.
type Config struct {
	Notifier  Notifier
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// NewDispatcher creates a dispatcher with its intent queue.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		notifier:   cfg.Notifier,
		intentChan: make(chan *Intent, cfg.QueueSize),
		workers:    cfg.Workers,
		timeout:    cfg.Timeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins consuming intents.
func (d *Dispatcher) Start() {
	log := logger.WithComponent("dispatcher")
	log.Info().Int("workers", d.workers).Msg("starting notification dispatcher")

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains in-flight deliveries and stops all workers. Queued intents that
// have not been picked up yet are discarded.
func (d *Dispatcher) Stop() {
	log := logger.WithComponent("dispatcher")
	log.Info().Msg("stopping notification dispatcher")
	d.cancel()
	d.wg.Wait()
	log.Info().Msg("notification dispatcher stopped")
}

// Enqueue hands an intent to the dispatcher without blocking. When the queue
// is full the intent is dropped and logged; ingestion is never held up by
// notification backpressure.
func (d *Dispatcher) Enqueue(intent *Intent) bool {
	select {
	case d.intentChan <- intent:
		return true
	default:
		dlog := logger.WithComponent("dispatcher")
		dlog.Warn().
			Str("intent_id", intent.ID).
			Int64("user_id", intent.UserID).
			Msg("notification queue full, dropping intent")
		metrics.NotificationsDroppedTotal.Inc()
		return false
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	log := logger.WithComponent("dispatcher").With().Int("worker_id", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("dispatcher worker panic recovered")
			metrics.PanicsRecovered.WithLabelValues("dispatcher").Inc()
		}
	}()

	for {
		select {
		case <-d.ctx.Done():
			return
		case intent := <-d.intentChan:
			d.dispatch(intent)
		}
	}
}

// dispatch performs one best-effort delivery attempt. No retry.
func (d *Dispatcher) dispatch(intent *Intent) {
	log := logger.WithComponent("dispatcher").With().
		Str("intent_id", intent.ID).
		Int64("user_id", intent.UserID).
		Strs("pollutants", intent.Exceeded).
		Logger()

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.notifier.Notify(ctx, intent)
	duration := time.Since(start)

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("notification dispatch failed")
		d.failed.Add(1)
		metrics.NotificationsFailedTotal.Inc()
		return
	}

	log.Info().Dur("duration", duration).Msg("notification dispatched")
	d.sent.Add(1)
	metrics.NotificationsSentTotal.Inc()
}

// Stats returns dispatcher delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:   d.sent.Load(),
		Failed: d.failed.Load(),
	}
}

// Stats holds dispatcher counters.
type Stats struct {
	Sent   uint64
	Failed uint64
}
