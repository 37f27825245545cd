package mail

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DispatcherConfig controls buffering and per-message delivery timeout.
type DispatcherConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

// Dispatcher asynchronously forwards messages to a sender.
type Dispatcher struct {
	cfg       DispatcherConfig
	sender    Sender
	logger    *slog.Logger
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	sent      atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(cfg DispatcherConfig, sender Sender, logger *slog.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: logger,
		ch:     make(chan Message, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Warn("mail delivery failed",
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)
		return
	}
	d.sent.Add(1)
}

// Dispatch enqueues msg and returns immediately. It reports false when the
// message was dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(msg Message) bool {
	if d == nil || d.closed.Load() {
		return false
	}

	select {
	case d.ch <- msg:
		return true
	case <-d.done:
		return false
	default:
		d.dropped.Add(1)
		d.logger.Warn("mail queue full, message dropped", slog.String("subject", msg.Subject))
		return false
	}
}

// Close stops accepting messages and drains the queue.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() (sent, failed, dropped uint64) {
	if d == nil {
		return 0, 0, 0
	}
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}
