// Package worker implements the queue consumer pipeline: analyze the
// source image, build the style prompt, transform, store the result, and
// drive the job's lifecycle state. It is transport-free so the pipeline
// can be exercised without a running queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/state"
	"server/internal/storage"
	"server/internal/styles"
)

// Generator is the slice of the Gemini client the pipeline depends on.
type Generator interface {
	Analyze(ctx context.Context, imageData []byte, mimeType string) (string, error)
	Transform(ctx context.Context, imageData []byte, mimeType, prompt string) ([]byte, error)
}

// Delivery is the acknowledgement surface of one queued message.
// NakWithDelay schedules redelivery; NumDelivered counts attempts
// including the current one.
type Delivery interface {
	Ack() error
	NakWithDelay(delay time.Duration) error
	NumDelivered() uint64
}

// Consumer processes job messages one at a time. Jobs in a batch may run
// concurrently against each other; they touch disjoint request IDs so no
// cross-job locking is needed.
type Consumer struct {
	states     *state.Store
	store      storage.ObjectStore
	generator  Generator
	logger     infra.Logger
	maxDeliver int
	retryDelay time.Duration
}

type Options struct {
	States     *state.Store
	Store      storage.ObjectStore
	Generator  Generator
	Logger     infra.Logger
	MaxDeliver int
	RetryDelay time.Duration
}

func NewConsumer(opts Options) *Consumer {
	maxDeliver := opts.MaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = 5
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}
	return &Consumer{
		states:     opts.States,
		store:      opts.Store,
		generator:  opts.Generator,
		logger:     opts.Logger,
		maxDeliver: maxDeliver,
		retryDelay: retryDelay,
	}
}

// Handle runs the pipeline for one delivery and applies the
// acknowledgement policy:
//
//   - success: state completed, ack
//   - shutdown or cancellation mid-job: neither ack nor state change,
//     the message redelivers after the ack wait
//   - upstream throttling: no state change, nak for redelivery; once the
//     delivery budget is spent the job fails terminally instead
//   - anything else: state failed (expiring), ack, no retry
func (c *Consumer) Handle(ctx context.Context, msg domain.JobMessage, delivery Delivery) {
	logger := c.logger.With().Str("request_id", msg.RequestID).Str("style_id", msg.StyleID).Logger()

	err := c.process(ctx, msg, logger)
	if err == nil {
		if ackErr := delivery.Ack(); ackErr != nil {
			logger.Error().Err(ackErr).Msg("worker: ack failed")
		}
		return
	}

	// An aborted job is not a failed job. Leaving the delivery untouched
	// hands it back to the queue once the ack wait elapses.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Err(err).Msg("worker: job interrupted, leaving delivery for redelivery")
		return
	}

	if errors.Is(err, domain.ErrRateLimited) {
		if delivery.NumDelivered() < uint64(c.maxDeliver) {
			logger.Warn().
				Uint64("deliveries", delivery.NumDelivered()).
				Dur("retry_delay", c.retryDelay).
				Msg("worker: upstream rate limited, leaving job for redelivery")
			if nakErr := delivery.NakWithDelay(c.retryDelay); nakErr != nil {
				logger.Error().Err(nakErr).Msg("worker: nak failed")
			}
			return
		}
		logger.Error().
			Uint64("deliveries", delivery.NumDelivered()).
			Msg("worker: retry budget exhausted, failing job")
	} else {
		logger.Error().Err(err).Msg("worker: job failed")
	}

	c.markFailed(ctx, msg.RequestID, logger)
	if ackErr := delivery.Ack(); ackErr != nil {
		logger.Error().Err(ackErr).Msg("worker: ack failed")
	}
}

func (c *Consumer) process(ctx context.Context, msg domain.JobMessage, logger infra.Logger) error {
	// Redeliveries can race an ack that never landed. A job that already
	// reached a terminal state must not run the pipeline again.
	if current, err := c.states.Get(ctx, msg.RequestID); err == nil && current.IsTerminal() {
		logger.Info().Str("state", string(current)).Msg("worker: job already finished, skipping delivery")
		return nil
	}

	if err := c.states.Set(ctx, msg.RequestID, domain.JobStateProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	sourceData, _, err := c.store.Get(ctx, msg.Image.Key)
	if err != nil {
		// A vanished source cannot recover on retry.
		return fmt.Errorf("fetch source %s: %w", msg.Image.Key, err)
	}
	logger.Info().Int("bytes", len(sourceData)).Msg("worker: fetched source image")

	description, err := c.generator.Analyze(ctx, sourceData, msg.Image.MimeType)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	prompt, err := styles.BuildPrompt(msg.StyleID, description)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	result, err := c.generator.Transform(ctx, sourceData, msg.Image.MimeType, prompt)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	resultKey := domain.ResultImageKey(msg.RequestID)
	if err := c.store.Put(ctx, resultKey, result, "image/png"); err != nil {
		return fmt.Errorf("store result %s: %w", resultKey, err)
	}

	if err := c.states.Set(ctx, msg.RequestID, domain.JobStateCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	logger.Info().Str("result_key", resultKey).Int("bytes", len(result)).Msg("worker: completed job")
	return nil
}

func (c *Consumer) markFailed(ctx context.Context, requestID string, logger infra.Logger) {
	if err := c.states.SetFailed(ctx, requestID); err != nil {
		logger.Error().Err(err).Msg("worker: mark failed errored")
	}
}
