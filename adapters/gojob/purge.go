package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-integrations/core"
)

const (
	JobIDPurgeExpired = "integrations.store.purge_expired"

	DefaultPurgeInterval = time.Minute
)

// Purger removes expired ephemeral entries. The SQL store implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RetryPolicy bounds how a failed purge is nacked.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps the delay and stops requeueing once attempt reaches
// MaxAttempts.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.DeadLetter = p.DeadLetterOnMax || out.DeadLetter
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// PurgeMessage builds the execution message for the purge window that
// contains now. Messages for the same window share an idempotency key.
func PurgeMessage(now time.Time, interval time.Duration) *job.ExecutionMessage {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	window := now.UTC().Truncate(interval)
	return &job.ExecutionMessage{
		JobID:          JobIDPurgeExpired,
		ScriptPath:     JobIDPurgeExpired,
		Parameters:     map[string]any{"window": window.Format(time.RFC3339)},
		IdempotencyKey: JobIDPurgeExpired + ":" + window.Format(time.RFC3339),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// Scheduler enqueues a purge message every interval.
type Scheduler struct {
	enqueuer queue.Enqueuer
	interval time.Duration
	now      func() time.Time
	logger   core.Logger
}

type SchedulerOption func(*Scheduler)

func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSchedulerLogger(logger core.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = glog.Ensure(logger)
	}
}

func NewScheduler(enqueuer queue.Enqueuer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		enqueuer: enqueuer,
		interval: DefaultPurgeInterval,
		now:      time.Now,
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Tick enqueues the purge message for the current window.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return s.enqueuer.Enqueue(ctx, PurgeMessage(s.now(), s.interval))
}

// Run calls Tick every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Warn("enqueue purge failed", "error", err)
			}
		}
	}
}

// PurgeWorker dequeues purge messages and runs them against a Purger.
type PurgeWorker struct {
	dequeuer queue.Dequeuer
	purger   Purger
	policy   RetryPolicy
	hook     worker.Hook
	logger   core.Logger
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type WorkerOption func(*PurgeWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *PurgeWorker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *PurgeWorker) {
		w.hook = hook
	}
}

func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *PurgeWorker) {
		w.logger = glog.Ensure(logger)
	}
}

func NewPurgeWorker(dequeuer queue.Dequeuer, purger Purger, opts ...WorkerOption) *PurgeWorker {
	w := &PurgeWorker{
		dequeuer: dequeuer,
		purger:   purger,
		policy:   RetryPolicy{MaxAttempts: 3, MaxDelay: DefaultPurgeInterval},
		logger:   glog.Nop(),
		now:      time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run processes deliveries until ctx is done or the dequeuer fails.
func (w *PurgeWorker) Run(ctx context.Context) error {
	for {
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := w.Process(ctx, delivery); err != nil {
			w.logger.Warn("purge delivery failed", "error", err)
		}
	}
}

// Process runs one delivery and acks or nacks it. Messages for other jobs
// are dead-lettered.
func (w *PurgeWorker) Process(ctx context.Context, delivery queue.Delivery) error {
	if w == nil || w.purger == nil {
		return fmt.Errorf("gojob: purger is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDPurgeExpired {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		return delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     fmt.Sprintf("unsupported job %q", jobID),
		})
	}

	key := msg.IdempotencyKey
	attempt := w.attempt(key)
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: w.now()}
	w.onStart(ctx, event)

	purged, err := w.purger.PurgeExpired(ctx)
	event.Duration = w.now().Sub(event.StartedAt)
	if err == nil {
		w.forget(key)
		w.onSuccess(ctx, event)
		if purged > 0 {
			w.logger.Debug("purged expired entries", "count", purged, "window", msg.Parameters["window"])
		}
		return delivery.Ack(ctx)
	}

	opts := w.policy.Normalize(queue.NackOptions{
		Delay:   time.Duration(attempt) * time.Second,
		Requeue: true,
		Reason:  err.Error(),
	}, attempt)
	event.Err = err
	event.Delay = opts.Delay
	if opts.Requeue {
		w.onRetry(ctx, event)
	} else {
		w.forget(key)
		w.onFailure(ctx, event)
	}
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return nackErr
	}
	return err
}

func (w *PurgeWorker) attempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *PurgeWorker) forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func (w *PurgeWorker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *PurgeWorker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *PurgeWorker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *PurgeWorker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}
