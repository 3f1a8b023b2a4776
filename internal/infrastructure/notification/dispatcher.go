package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound customer notification
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher queues messages onto a buffered channel and delivers them from a
// single background worker. Enqueue never blocks the caller: when the buffer
// is full the message is dropped and logged. A lost notification must never
// roll back or delay a committed order.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger

	queue chan Message
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher with the given buffer size and starts
// its delivery worker
func NewDispatcher(sender Sender, logger *zap.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	d := &Dispatcher{
		sender:      sender,
		logger:      logger,
		queue:       make(chan Message, bufferSize),
		done:        make(chan struct{}),
		sendTimeout: 30 * time.Second,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Enqueue hands a message to the delivery worker without blocking
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("notification queue full, dropping message",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
	}
}

// Close stops the worker after draining queued messages
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.done:
			// Drain whatever is left before exiting
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send notification",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("notification sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
}
