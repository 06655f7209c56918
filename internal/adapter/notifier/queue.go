package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/port"
)

var (
	ErrQueueFull   = errors.New("notification queue full")
	ErrQueueClosed = errors.New("notification queue closed")
)

const deliveryTimeout = 5 * time.Second

// Queue hands events to a pool of workers that deliver them to the target, so
// a slow transport never holds up the operation that produced the event.
type Queue struct {
	target port.OrderNotifier
	log    logrus.FieldLogger
	events chan domain.OrderPlaced

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(target port.OrderNotifier, size int, log logrus.FieldLogger) *Queue {
	return &Queue{
		target: target,
		log:    log,
		events: make(chan domain.OrderPlaced, size),
	}
}

// Start launches workerCount delivery workers.
func (q *Queue) Start(workerCount int) {
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	q.log.Infof("started %d notification workers", workerCount)
}

func (q *Queue) OrderPlaced(_ context.Context, event domain.OrderPlaced) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the workers drained the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) workerLoop(id int) {
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)

		if err := q.target.OrderPlaced(ctx, event); err != nil {
			q.log.WithError(err).WithFields(logrus.Fields{
				"worker":   id,
				"order_id": event.OrderID,
			}).Error("failed to deliver order notification")
		}

		cancel()
	}
}
