package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// ErrQueueFull is returned when the worker owning a recipient has no room left.
var ErrQueueFull = errors.New("notification queue full")

// Message is a single out-of-band notification.
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher fans password reset notifications out to a fixed set of workers.
// Messages for the same recipient always land on the same worker, so they are
// delivered in the order they were requested.
type Dispatcher struct {
	workers []chan Message
	sender  Sender
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Message, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// NotifyPasswordReset queues a reset-link message. It never blocks the caller.
func (d *Dispatcher) NotifyPasswordReset(ctx context.Context, email, link string) error {
	return d.Enqueue(ctx, Message{
		To:      email,
		Subject: "Reset your password",
		Body:    "Use the link below to choose a new password. If you did not ask for this, ignore this message.",
		Link:    link,
	})
}

// Enqueue hands msg to the worker responsible for its recipient.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	idx := d.shardIndex(msg.To)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.workers[idx] <- msg:
		metrics.NotificationsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Message) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotificationsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.sender.Send(ctx, msg); err != nil {
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("to", msg.To).
					Int("worker_id", id).
					Msg("notification delivery failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		}
	}
}
