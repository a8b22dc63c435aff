package notifier

import (
	"context"
	"sync"
	"time"

	"spotbot/internal/logger"
)

var log = logger.Component("notifier")

// Queue decouples the trading loop from message delivery. Messages are
// delivered in order by a single worker; failures are logged and dropped.
type Queue struct {
	sink    TextNotifier
	ch      chan string
	timeout time.Duration

	once sync.Once
	done chan struct{}
}

func NewQueue(sink TextNotifier, size int, timeout time.Duration) *Queue {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Queue{
		sink:    sink,
		ch:      make(chan string, size),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Send enqueues text. It returns false when the queue is full or closed.
func (q *Queue) Send(text string) bool {
	if q == nil || q.sink == nil || text == "" {
		return false
	}
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- text:
		return true
	default:
		log.Warnf("queue full, dropping message")
		return false
	}
}

// Run delivers messages until ctx is cancelled, then drains what is left
// with a short deadline.
func (q *Queue) Run(ctx context.Context) error {
	defer q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return nil
		case text := <-q.ch:
			q.deliver(context.Background(), text)
		}
	}
}

func (q *Queue) drain() {
	deadline := time.Now().Add(q.timeout)
	for time.Now().Before(deadline) {
		select {
		case text := <-q.ch:
			q.deliver(context.Background(), text)
		default:
			return
		}
	}
}

func (q *Queue) deliver(parent context.Context, text string) {
	ctx, cancel := context.WithTimeout(parent, q.timeout)
	defer cancel()
	if err := q.sink.SendText(ctx, text); err != nil {
		log.Errorf("delivery failed: %v", err)
	}
}
