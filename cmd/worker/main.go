package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"

	"server/internal/bus"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/genai"
	"server/internal/state"
	"server/internal/storage"
	"server/internal/worker"
)

// jetstreamDelivery adapts a JetStream message to the acknowledgement
// surface the pipeline consumes.
type jetstreamDelivery struct {
	msg jetstream.Msg
}

func (d jetstreamDelivery) Ack() error {
	return d.msg.Ack()
}

func (d jetstreamDelivery) NakWithDelay(delay time.Duration) error {
	return d.msg.NakWithDelay(delay)
}

func (d jetstreamDelivery) NumDelivered() uint64 {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return meta.NumDelivered
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object store")
	}

	generator, err := genai.NewClient(genai.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		Model:        cfg.GeminiModel,
		AnalyzeModel: cfg.GeminiAnalyzeModel,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}

	queue, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect nats")
	}
	defer queue.Close()

	if err := queue.EnsureStream(ctx, cfg.JobStream, cfg.JobSubject); err != nil {
		logger.Fatal().Err(err).Msg("failed to provision job stream")
	}

	consumer := worker.NewConsumer(worker.Options{
		States:     state.NewStore(redisClient),
		Store:      store,
		Generator:  generator,
		Logger:     logger,
		MaxDeliver: cfg.JobMaxDeliver,
		RetryDelay: cfg.JobRetryDelay,
	})

	cc, err := queue.Consume(ctx, bus.ConsumerConfig{
		Stream:     cfg.JobStream,
		Durable:    cfg.JobConsumer,
		MaxDeliver: cfg.JobMaxDeliver,
	}, func(msg jetstream.Msg) {
		var job domain.JobMessage
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			logger.Error().Err(err).Msg("worker: malformed job message")
			_ = msg.Term()
			return
		}
		consumer.Handle(ctx, job, jetstreamDelivery{msg: msg})
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start consumer")
	}
	defer cc.Stop()

	logger.Info().
		Str("stream", cfg.JobStream).
		Str("consumer", cfg.JobConsumer).
		Str("model", generator.Model()).
		Msg("worker consuming jobs")

	<-ctx.Done()
	logger.Info().Msg("worker stopped")
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	}
	return storage.NewFileStore(cfg.StoragePath)
}
