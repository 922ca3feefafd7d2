package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"estate/internal/metrics"
	"estate/internal/models"
)

type Options struct {
	Timeout   time.Duration
	QueueSize int
}

type Report struct {
	Sent   int
	Failed int
}

type Dispatcher struct {
	directory Directory
	sinks     []Sink
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan []Notification
	wg     sync.WaitGroup
}

func NewDispatcher(directory Directory, sinks []Sink, opts Options, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		directory: directory,
		sinks:     sinks,
		timeout:   opts.Timeout,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		queue:     make(chan []Notification, opts.QueueSize),
	}
}

// Deliver sends the batch synchronously and reports per-send outcomes.
func (d *Dispatcher) Deliver(ctx context.Context, batch []Notification) Report {
	var report Report
	if len(batch) == 0 {
		return report
	}
	contacts := d.resolve(ctx, batch)
	for _, n := range batch {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = d.now()
		}
		contact, ok := contacts[n.UserID]
		if !ok {
			contact = models.Contact{UserID: n.UserID}
		}
		for _, sink := range d.sinks {
			if err := d.send(ctx, sink, contact, n); err != nil {
				report.Failed++
				d.logger.Warn("notification delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("user_id", n.UserID),
					zap.String("kind", string(n.Kind)),
					zap.Error(err),
				)
				continue
			}
			report.Sent++
		}
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, sink Sink, to models.Contact, n Notification) (err error) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
		d.metrics.ObserveNotification(sink.Name(), err)
	}()
	return sink.Send(sendCtx, to, n)
}

// resolve looks contacts up once per batch. A directory failure still lets
// sinks that only need the user id (websocket, NATS) deliver.
func (d *Dispatcher) resolve(ctx context.Context, batch []Notification) map[string]models.Contact {
	seen := make(map[string]struct{}, len(batch))
	ids := make([]string, 0, len(batch))
	for _, n := range batch {
		if _, ok := seen[n.UserID]; ok || n.UserID == "" {
			continue
		}
		seen[n.UserID] = struct{}{}
		ids = append(ids, n.UserID)
	}
	byID := make(map[string]models.Contact, len(ids))
	if d.directory == nil || len(ids) == 0 {
		return byID
	}
	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	contacts, err := d.directory.Contacts(lookupCtx, ids)
	if err != nil {
		d.logger.Warn("notification contact lookup failed", zap.Int("recipients", len(ids)), zap.Error(err))
		return byID
	}
	for _, c := range contacts {
		byID[c.UserID] = c
	}
	return byID
}

// Enqueue hands a batch to the background worker. A full queue drops the
// batch rather than blocking the caller.
func (d *Dispatcher) Enqueue(batch ...Notification) {
	if len(batch) == 0 {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped after shutdown", zap.Int("count", len(batch)))
		d.metrics.ObserveDrop()
		return
	}
	select {
	case d.queue <- batch:
	default:
		d.logger.Warn("notification queue full, dropping batch", zap.Int("count", len(batch)))
		d.metrics.ObserveDrop()
	}
}

// Start runs the queue worker until Close.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for batch := range d.queue {
			d.Deliver(context.WithoutCancel(ctx), batch)
		}
	}()
}

// Close stops accepting batches, drains the queue and waits for the worker.
func (d *Dispatcher) Close() {
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
