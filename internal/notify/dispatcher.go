package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	MaxConcurrent int
	QueueSize     int
	Timeout       time.Duration
	Logger        *logrus.Logger
}

// Dispatcher runs notifications on a fixed pool of workers fed by a bounded
// queue. Dispatch never blocks the caller; when the queue is full the message
// is dropped and delivery failures are only logged.
type Dispatcher struct {
	cfg      Config
	notifier Notifier

	queue  chan Message
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(cfg Config, notifier Notifier) *Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:      cfg,
		notifier: notifier,
		queue:    make(chan Message, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < cfg.MaxConcurrent; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch queues msg and reports whether it was accepted.
func (d *Dispatcher) Dispatch(msg Message) bool {
	logger := d.cfg.Logger.WithField("username", msg.Username)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		logger.Warn("dispatcher closed, dropping notification")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		logger.WithField("queue_size", d.cfg.QueueSize).Warn("notification queue full, dropping notification")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		if d.ctx.Err() != nil {
			continue
		}
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	logger := d.cfg.Logger.WithFields(logrus.Fields{
		"kind":     msg.Kind,
		"username": msg.Username,
	})

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("notifier panic: %v", r)
			}
		}()
		return d.notifier.Notify(ctx, msg)
	}()
	if err != nil {
		logger.WithError(err).Warn("notification failed")
	}
}

// Shutdown stops accepting work and waits for queued notifications. Once ctx
// is done the remaining deliveries are cancelled.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.cfg.Logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
