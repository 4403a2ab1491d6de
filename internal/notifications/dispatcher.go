package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
)

// ErrDispatcherStopped is returned by Enqueue after Stop.
var ErrDispatcherStopped = errors.New("notification dispatcher stopped")

// ErrQueueFull is returned by Enqueue when the job was dropped.
var ErrQueueFull = errors.New("notification queue full")

// Job is one queued delivery.
type Job struct {
	ID        string
	TokenID   int64
	Token     string
	Recipient string
	Message   Message
}

// DeliveryHook is called after a successful delivery. Its error is logged.
type DeliveryHook func(ctx context.Context, job Job, receipt Receipt) error

// Dispatcher runs deliveries on a fixed pool of workers fed by a bounded
// queue.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	metrics *telemetry.Metrics
	hook    DeliveryHook

	workers     int
	sendTimeout time.Duration
	queue       chan Job

	mu      sync.RWMutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Job, n)
		}
	}
}

// WithSendTimeout limits each delivery attempt.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithDeliveryHook registers a callback for successful deliveries.
func WithDeliveryHook(hook DeliveryHook) DispatcherOption {
	return func(d *Dispatcher) { d.hook = hook }
}

// WithDispatchMetrics counts delivery outcomes.
func WithDispatchMetrics(m *telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher builds a stopped dispatcher around sender.
func NewDispatcher(sender Sender, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if sender == nil {
		sender = NoopSender{}
	}
	d := &Dispatcher{
		sender:      sender,
		logger:      logging.NewComponentLogger(logger, "notifications"),
		workers:     2,
		sendTimeout: 15 * time.Second,
		queue:       make(chan Job, 256),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Calling Start twice is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.running = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(runCtx)
	}
	d.logger.Debug("notification workers started", logging.Int("workers", d.workers), logging.Int("queue_size", cap(d.queue)))
}

// Enqueue hands job to the workers without blocking. A full queue drops the
// job. The returned job carries its assigned id.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return job, ErrDispatcherStopped
	}
	logger := d.jobLogger(ctx, job)
	select {
	case d.queue <- job:
		logger.Debug("notification queued")
		return job, nil
	default:
		d.metrics.Notification(ctx, "dropped")
		logger.Warn("notification dropped", logging.Alert("notification_queue_full"))
		return job, ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to finish. When ctx ends
// first, in-flight sends are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	running := d.running
	cancel := d.cancel
	d.mu.Unlock()

	if !running {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for job := range d.queue {
		d.deliver(ctx, job)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	logger := d.jobLogger(ctx, job)
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	started := time.Now()
	receipt, err := d.sender.Send(sendCtx, job.Recipient, job.Message)
	elapsed := time.Since(started)
	if err != nil {
		d.metrics.Notification(ctx, "failed")
		logger.Warn("notification failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.Alert("notification_failed"),
		)
		return
	}
	if !receipt.Delivered {
		d.metrics.Notification(ctx, "skipped")
		logger.Debug("notification not delivered by sender")
		return
	}

	d.metrics.Notification(ctx, "sent")
	logger.Info("notification sent",
		logging.String("provider_message_id", receipt.ProviderMessageID),
		logging.Duration("elapsed", elapsed),
	)
	if d.hook != nil {
		if err := d.hook(ctx, job, receipt); err != nil {
			logger.Warn("notification receipt not recorded", logging.Error(err))
		}
	}
}

func (d *Dispatcher) jobLogger(ctx context.Context, job Job) *slog.Logger {
	attrs := []logging.Attr{logging.String("job_id", job.ID)}
	if job.TokenID != 0 {
		attrs = append(attrs, logging.Int64(logging.FieldTokenID, job.TokenID))
	}
	if job.Token != "" {
		attrs = append(attrs, logging.Token(job.Token))
	}
	return logging.WithContext(ctx, d.logger).With(logging.Args(attrs...)...)
}
