package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/infra/archive"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/config"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/decoder"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/email"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/imaging"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/metrics"
	miniostorage "github.com/fiapx/fiapx-screenshot-service/internal/infra/minio"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/postgres"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/tracing"
	"github.com/fiapx/fiapx-screenshot-service/internal/usecase"
	"github.com/fiapx/fiapx-screenshot-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting screenshot worker", zap.String("decoder", cfg.DecoderBackend))

	shutdownTracing, err := tracing.Setup(ctx, "screenshot-worker", cfg.TraceEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ZipBucket:    cfg.MinIOZipBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	videos, err := decoder.NewRouter(cfg.DecoderBackend, cfg.FFmpegPath, cfg.FFprobePath, log)
	fatalOnErr(err, "create decoder")

	capture := usecase.NewCaptureService(videos, imaging.Factory(cfg.JPEGQuality), archive.NewZipCreator(), log)
	uc := usecase.NewProcessScreenshotsUseCase(
		postgres.NewJobRepository(pool),
		storage,
		capture,
		rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue),
		rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ),
		email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log),
		log,
		usecase.ProcessScreenshotsConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	log.Info("screenshot worker started, consuming messages", zap.String("queue", cfg.RabbitMQProcessingQueue))

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("screenshot worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
