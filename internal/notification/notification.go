// File: internal/notification/notification.go
package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Notification is a formatted match event handed to every sink
type Notification struct {
	Event models.MatchEvent `json:"event"`
	Text  string            `json:"text"`
}

// Sink delivers notifications to one transport
type Sink interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
	Close() error
}

// SinkFunc adapts a function to the Sink interface. Handy for tests and for
// one-off transports wired from main.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, n *Notification) error
}

func (f SinkFunc) Name() string { return f.SinkName }

func (f SinkFunc) Send(ctx context.Context, n *Notification) error { return f.Fn(ctx, n) }

func (f SinkFunc) Close() error { return nil }

// DispatcherConfig configures the dispatcher queue
type DispatcherConfig struct {
	QueueSize   int           `json:"queue_size"`
	SendTimeout time.Duration `json:"send_timeout"`
}

// DispatcherStats provides dispatcher statistics
type DispatcherStats struct {
	Enqueued   uint64   `json:"enqueued"`
	Delivered  uint64   `json:"delivered"`
	Failed     uint64   `json:"failed"`
	QueueDepth int      `json:"queue_depth"`
	Sinks      []string `json:"sinks"`
	IsRunning  bool     `json:"is_running"`
}

// Dispatcher is the single ordered channel between the scan loops and the sinks.
// Events are delivered in the order they were enqueued.
type Dispatcher struct {
	config  DispatcherConfig
	sinks   []Sink
	queue   chan models.MatchEvent
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Entry

	mu      sync.RWMutex
	running bool
	closed  bool
	done    chan struct{}

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher creates a dispatcher fanning out to sinks
func NewDispatcher(config DispatcherConfig, sinks []Sink, pm *metrics.PrometheusMetrics) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}

	return &Dispatcher{
		config:  config,
		sinks:   sinks,
		queue:   make(chan models.MatchEvent, config.QueueSize),
		metrics: pm,
		logger:  utils.ComponentLogger("dispatcher"),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return utils.NewAppError(utils.ErrCodeInternal, "Dispatcher already stopped", "")
	}
	if d.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Dispatcher already running", "")
	}
	d.running = true

	go d.run()

	d.logger.WithField("sinks", d.sinkNames()).Info("Notification dispatcher started")
	return nil
}

// Enqueue blocks until the event is queued or ctx is done
func (d *Dispatcher) Enqueue(ctx context.Context, event models.MatchEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return utils.NewAppError(utils.ErrCodeInternal, "Dispatcher stopped", event.ID)
	}

	select {
	case d.queue <- event:
		d.enqueued.Add(1)
		d.metrics.UpdateNotificationQueueDepth(len(d.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new events, delivers everything already queued and closes the sinks
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	running := d.running
	d.mu.Unlock()

	if running {
		<-d.done
	}

	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			d.logger.WithError(err).WithField("sink", s.Name()).Warn("Failed to close sink")
		}
	}

	d.logger.WithFields(logrus.Fields{
		"delivered": d.delivered.Load(),
		"failed":    d.failed.Load(),
	}).Info("Notification dispatcher stopped")
	return nil
}

// IsRunning reports whether the consumer is active
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running && !d.closed
}

// GetStats returns dispatcher statistics
func (d *Dispatcher) GetStats() *DispatcherStats {
	return &DispatcherStats{
		Enqueued:   d.enqueued.Load(),
		Delivered:  d.delivered.Load(),
		Failed:     d.failed.Load(),
		QueueDepth: len(d.queue),
		Sinks:      d.sinkNames(),
		IsRunning:  d.IsRunning(),
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.queue {
		d.metrics.UpdateNotificationQueueDepth(len(d.queue))
		d.deliver(event)
	}
}

// deliver is fire-and-forget per sink; one failing sink does not hold back the others.
func (d *Dispatcher) deliver(event models.MatchEvent) {
	n := &Notification{Event: event, Text: FormatMatch(event)}

	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.SendTimeout)
		start := time.Now()
		err := s.Send(ctx, n)
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.metrics.RecordNotificationFailure(s.Name(), errorType(err))
			d.logger.WithError(err).WithFields(logrus.Fields{
				"sink":     s.Name(),
				"event_id": event.ID,
				"chain":    event.ChainID,
			}).Error("Notification delivery failed")
			continue
		}
		d.delivered.Add(1)
		d.metrics.RecordNotificationSent(s.Name(), time.Since(start))
	}
}

func (d *Dispatcher) sinkNames() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case utils.HasCode(err, utils.ErrCodeExternal):
		return "external"
	case utils.HasCode(err, utils.ErrCodeValidation):
		return "validation"
	default:
		return "send_error"
	}
}
