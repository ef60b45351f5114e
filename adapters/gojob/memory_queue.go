package gojob

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// MemoryQueue is a single-process queue for serve. Messages whose
// idempotency key is already pending are dropped.
type MemoryQueue struct {
	mu         sync.Mutex
	ready      chan *job.ExecutionMessage
	pending    map[string]struct{}
	deadLetter []*job.ExecutionMessage
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 16
	}
	return &MemoryQueue{
		ready:   make(chan *job.ExecutionMessage, capacity),
		pending: map[string]struct{}{},
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg *job.ExecutionMessage) error {
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	key := msg.IdempotencyKey
	q.mu.Lock()
	if _, ok := q.pending[key]; ok && key != "" {
		q.mu.Unlock()
		return nil
	}
	q.pending[key] = struct{}{}
	q.mu.Unlock()

	select {
	case q.ready <- copyMessage(msg):
		return nil
	case <-ctx.Done():
		q.release(key)
		return ctx.Err()
	default:
		q.release(key)
		return fmt.Errorf("gojob: queue is full")
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (queue.Delivery, error) {
	select {
	case msg := <-q.ready:
		return &memoryDelivery{queue: q, msg: msg}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeadLetters returns the messages nacked without requeue.
func (q *MemoryQueue) DeadLetters() []*job.ExecutionMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*job.ExecutionMessage, 0, len(q.deadLetter))
	for _, msg := range q.deadLetter {
		out = append(out, copyMessage(msg))
	}
	return out
}

func (q *MemoryQueue) release(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, key)
}

func (q *MemoryQueue) requeue(msg *job.ExecutionMessage, delay time.Duration) {
	push := func() {
		select {
		case q.ready <- msg:
		default:
			q.release(msg.IdempotencyKey)
		}
	}
	if delay <= 0 {
		push()
		return
	}
	time.AfterFunc(delay, push)
}

type memoryDelivery struct {
	queue *MemoryQueue
	msg   *job.ExecutionMessage
	once  sync.Once
}

func (d *memoryDelivery) Message() *job.ExecutionMessage {
	return copyMessage(d.msg)
}

func (d *memoryDelivery) Ack(context.Context) error {
	d.once.Do(func() { d.queue.release(d.msg.IdempotencyKey) })
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.once.Do(func() {
		if opts.Requeue && !opts.DeadLetter {
			d.queue.requeue(d.msg, opts.Delay)
			return
		}
		d.queue.release(d.msg.IdempotencyKey)
		if opts.DeadLetter {
			d.queue.mu.Lock()
			d.queue.deadLetter = append(d.queue.deadLetter, d.msg)
			d.queue.mu.Unlock()
		}
	})
	return nil
}

func copyMessage(msg *job.ExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	out := *msg
	out.Parameters = maps.Clone(msg.Parameters)
	return &out
}

var (
	_ queue.Enqueuer = (*MemoryQueue)(nil)
	_ queue.Dequeuer = (*MemoryQueue)(nil)
	_ queue.Delivery = (*memoryDelivery)(nil)
)
