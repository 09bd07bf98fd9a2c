package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/triage"
)

// Message is one triage job read from the stream.
type Message struct {
	ID       string
	TicketID string
	Attempt  int
	Raw      redis.XMessage
}

// StreamProducer appends triage jobs to a Redis stream.
type StreamProducer struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamProducer builds a producer for stream.
func NewStreamProducer(client *redis.Client, stream string, logger *zap.Logger) *StreamProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamProducer{client: client, stream: stream, logger: logger}
}

// Enqueue adds a first-attempt job for ticketID.
func (p *StreamProducer) Enqueue(ctx context.Context, ticketID string) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(Message{TicketID: ticketID, Attempt: 1}),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue triage job: %w", err)
	}
	p.logger.Info("enqueued triage job", zap.String("ticket_id", ticketID), zap.String("stream", p.stream))
	return nil
}

// StreamConfig configures a consumer.
type StreamConfig struct {
	Stream      string
	Group       string
	Consumer    string
	DLQStream   string
	BatchSize   int64
	Block       time.Duration
	MaxAttempts int
}

// StreamConsumer reads triage jobs through a consumer group. Failed runs are
// requeued until MaxAttempts and then moved to the dead-letter stream.
type StreamConsumer struct {
	client *redis.Client
	cfg    StreamConfig
	runner Runner
	logger *zap.Logger
}

// NewStreamConsumer creates the consumer group if needed.
func NewStreamConsumer(ctx context.Context, client *redis.Client, cfg StreamConfig, runner Runner, logger *zap.Logger) (*StreamConsumer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &StreamConsumer{client: client, cfg: cfg, runner: runner, logger: logger}

	// "0" so a recreated group still sees jobs already in the stream.
	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}
	return c, nil
}

// Run consumes until ctx ends.
func (c *StreamConsumer) Run(ctx context.Context) error {
	c.logger.Info("triage stream consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Consumer),
	)
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("reading triage stream", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
	}
}

// Read fetches new messages for this consumer. Malformed entries are acked and skipped.
func (c *StreamConsumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, raw := range stream.Messages {
			msg, parseErr := ParseMessage(raw)
			if parseErr != nil {
				c.logger.Error("dropping malformed triage job", zap.String("message_id", raw.ID), zap.Error(parseErr))
				_ = c.ack(ctx, raw.ID)
				continue
			}
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleReschedule
	settleDeadLetter
)

// settle decides what happens to msg after a run. Jobs the pool never
// accepted go back on the stream without spending an attempt.
func settle(res triage.Result, msg Message, maxAttempts int) settlement {
	switch {
	case res.Success:
		return settleAck
	case errors.Is(res.Err, ErrQueueFull), errors.Is(res.Err, ErrPoolClosed):
		return settleReschedule
	case retryable(res.Err) && msg.Attempt < maxAttempts:
		return settleRequeue
	default:
		return settleDeadLetter
	}
}

func (c *StreamConsumer) handle(ctx context.Context, msg Message) {
	res := c.runner.Run(ctx, msg.TicketID)
	log := c.logger.With(
		zap.String("ticket_id", msg.TicketID),
		zap.String("trace_id", res.TraceID),
		zap.Int("attempt", msg.Attempt),
	)

	var err error
	switch settle(res, msg, c.cfg.MaxAttempts) {
	case settleAck:
		err = c.ack(ctx, msg.ID)
	case settleReschedule:
		log.Warn("triage run not scheduled; returning job to stream", zap.String("error", res.Error))
		err = c.requeue(ctx, msg, msg.Attempt, res.Error)
	case settleRequeue:
		log.Warn("requeueing failed triage run", zap.String("error", res.Error))
		err = c.requeue(ctx, msg, msg.Attempt+1, res.Error)
	default:
		log.Error("dead-lettering failed triage run", zap.String("error", res.Error))
		err = c.deadLetter(ctx, msg, res)
	}
	if err != nil {
		log.Error("settling triage job", zap.Error(err))
	}
}

// retryable excludes failures that another attempt cannot fix.
func retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, triage.ErrTicketNotFound) &&
		!errors.Is(err, triage.ErrInvalidTransition)
}

func (c *StreamConsumer) ack(ctx context.Context, id string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

func (c *StreamConsumer) requeue(ctx context.Context, msg Message, attempt int, errMsg string) error {
	if err := c.ack(ctx, msg.ID); err != nil {
		return err
	}
	next := msg
	next.Attempt = attempt
	values := messageValues(next)
	values["last_error"] = errMsg
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.Stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}
	return nil
}

func (c *StreamConsumer) deadLetter(ctx context.Context, msg Message, res triage.Result) error {
	if err := c.ack(ctx, msg.ID); err != nil {
		return err
	}
	values := messageValues(msg)
	values["error"] = res.Error
	values["trace_id"] = res.TraceID
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DLQStream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}
	return nil
}

// ParseMessage decodes a raw stream entry.
func ParseMessage(raw redis.XMessage) (Message, error) {
	ticketID, ok := raw.Values["ticket_id"]
	if !ok || fmt.Sprint(ticketID) == "" {
		return Message{}, errors.New("missing ticket_id")
	}
	attempt := 1
	if v, ok := raw.Values["attempt"]; ok {
		n, err := strconv.Atoi(fmt.Sprint(v))
		if err != nil {
			return Message{}, fmt.Errorf("parsing attempt: %w", err)
		}
		if n > 0 {
			attempt = n
		}
	}
	return Message{ID: raw.ID, TicketID: fmt.Sprint(ticketID), Attempt: attempt, Raw: raw}, nil
}

func messageValues(msg Message) map[string]any {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	return map[string]any{
		"ticket_id": msg.TicketID,
		"attempt":   attempt,
	}
}
