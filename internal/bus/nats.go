// Package bus wraps the NATS JetStream connection used to hand jobs from
// the ingress handler to the consumer. JetStream's explicit-ack consumers
// provide the redelivery mechanism the pipeline's retry policy relies on.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"server/internal/domain"
)

type Client struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: jetstream: %w", err)
	}
	return &Client{nc: nc, js: js}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// EnsureStream creates or updates the durable stream that buffers job
// messages. Both processes call it so either can start first.
func (c *Client) EnsureStream(ctx context.Context, name, subject string) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("bus: ensure stream %s: %w", name, err)
	}
	return nil
}

// PublishJob enqueues a job descriptor for the consumer.
func (c *Client) PublishJob(ctx context.Context, subject string, msg domain.JobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: marshal job: %w", err)
	}
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("bus: publish job: %w", err)
	}
	return nil
}

// ConsumerConfig shapes the durable consumer the worker binds to.
// MaxDeliver bounds how often a throttled job can come back before the
// worker gives up on it.
type ConsumerConfig struct {
	Stream     string
	Durable    string
	MaxDeliver int
	AckWait    time.Duration
}

// Consume binds a durable explicit-ack consumer and invokes the handler
// for every delivery. The handler owns acknowledgement.
func (c *Client) Consume(ctx context.Context, cfg ConsumerConfig, handler func(msg jetstream.Msg)) (jetstream.ConsumeContext, error) {
	ackWait := cfg.AckWait
	if ackWait == 0 {
		ackWait = 5 * time.Minute
	}
	cons, err := c.js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:    cfg.Durable,
		AckPolicy:  jetstream.AckExplicitPolicy,
		MaxDeliver: cfg.MaxDeliver,
		AckWait:    ackWait,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: ensure consumer %s: %w", cfg.Durable, err)
	}
	cc, err := cons.Consume(handler)
	if err != nil {
		return nil, fmt.Errorf("bus: consume: %w", err)
	}
	return cc, nil
}
