// Package worker schedules triage runs off the request path, either on an
// in-process goroutine pool or through a Redis stream shared by processes.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

var (
	ErrPoolClosed = errors.New("triage pool closed")
	ErrQueueFull  = errors.New("triage queue full")
)

// Runner executes one triage run.
type Runner interface {
	Run(ctx context.Context, ticketID string) triage.Result
}

// PoolConfig sizes the pool.
type PoolConfig struct {
	Workers       int
	QueueSize     int
	FailureBuffer int
}

// Handle observes one submitted run.
type Handle struct {
	TicketID string
	done     chan struct{}
	result   triage.Result
}

func newHandle(ticketID string) *Handle {
	return &Handle{TicketID: ticketID, done: make(chan struct{})}
}

// Done is closed once the run has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes or ctx ends.
func (h *Handle) Wait(ctx context.Context) (triage.Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return triage.Result{}, ctx.Err()
	}
}

func (h *Handle) complete(res triage.Result) {
	h.result = res
	close(h.done)
}

type job struct {
	ticketID string
	handle   *Handle
}

// Pool runs triage on a fixed number of goroutines. Failed runs are delivered
// on Errors; successful ones are published as outcome events.
type Pool struct {
	runner     Runner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	workers    int

	jobs     chan job
	failures chan triage.Result

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool builds a pool; call Start before submitting work.
func NewPool(runner Runner, cfg PoolConfig, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.FailureBuffer <= 0 {
		cfg.FailureBuffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		runner:     runner,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		workers:    cfg.Workers,
		jobs:       make(chan job, cfg.QueueSize),
		failures:   make(chan triage.Result, cfg.FailureBuffer),
	}
}

// Start launches the workers. Runs keep ctx's values but are cancelled only
// by Shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(runCtx, i)
	}
	p.logger.Info("triage pool started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.jobs)))
}

// Errors yields failed run results. It is closed after Shutdown drains the pool.
func (p *Pool) Errors() <-chan triage.Result {
	return p.failures
}

// Submit queues a run without waiting for it. It fails fast when the queue is full.
func (p *Pool) Submit(ctx context.Context, ticketID string) (*Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := newHandle(ticketID)
	select {
	case p.jobs <- job{ticketID: ticketID, handle: h}:
		p.metrics.SetQueueDepth(len(p.jobs))
		return h, nil
	default:
		return nil, ErrQueueFull
	}
}

// Enqueue is the fire-and-forget form of Submit.
func (p *Pool) Enqueue(ctx context.Context, ticketID string) error {
	_, err := p.Submit(ctx, ticketID)
	return err
}

// Trigger submits a run and waits for its result.
func (p *Pool) Trigger(ctx context.Context, ticketID string) (triage.Result, error) {
	h, err := p.Submit(ctx, ticketID)
	if err != nil {
		return triage.Result{}, err
	}
	return h.Wait(ctx)
}

// Run satisfies Runner so a StreamConsumer can feed the pool. Scheduling
// errors are reported as a failed Result.
func (p *Pool) Run(ctx context.Context, ticketID string) triage.Result {
	res, err := p.Trigger(ctx, ticketID)
	if err != nil {
		return triage.Result{TicketID: ticketID, Error: err.Error(), Err: err}
	}
	return res
}

// Shutdown stops accepting work and waits for queued runs. When ctx ends
// first, in-flight runs are cancelled and ctx.Err is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		close(p.failures)
		return nil
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.failures)
		close(drained)
	}()

	select {
	case <-drained:
		p.cancel()
		p.logger.Info("triage pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("triage pool shutdown timed out; cancelling in-flight runs")
		return ctx.Err()
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.metrics.SetQueueDepth(len(p.jobs))
		res := p.runner.Run(ctx, j.ticketID)
		j.handle.complete(res)

		if !res.Success {
			p.reportFailure(res, id)
			continue
		}
		p.publishOutcome(ctx, res)
	}
}

func (p *Pool) reportFailure(res triage.Result, workerID int) {
	select {
	case p.failures <- res:
	default:
		p.logger.Warn("triage failure channel full; dropping result",
			zap.Int("worker", workerID),
			zap.String("ticket_id", res.TicketID),
			zap.String("trace_id", res.TraceID),
			zap.String("error", res.Error),
		)
	}
}

func (p *Pool) publishOutcome(ctx context.Context, res triage.Result) {
	if p.dispatcher == nil || res.Suggestion == nil {
		return
	}
	eventType := events.EventTicketEscalated
	if res.Action == triage.ActionAutoClosed {
		eventType = events.EventTicketAutoClosed
	}
	err := p.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  res.TicketID,
		Actor:     events.Actor{Type: domain.ActorAgent},
		Timestamp: time.Now().UTC(),
		Payload: events.TriageOutcomePayload{
			TraceID:      res.TraceID,
			SuggestionID: res.Suggestion.ID,
			Action:       string(res.Action),
			Confidence:   res.Suggestion.Confidence,
		},
	})
	if err != nil {
		p.logger.Warn("publishing triage outcome failed", zap.String("ticket_id", res.TicketID), zap.Error(err))
	}
}
