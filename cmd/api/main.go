package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/infra/archive"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/config"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/decoder"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/httpapi"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/imaging"
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

	shutdownTracing, err := tracing.Setup(ctx, "screenshot-api", cfg.TraceEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	fatalOnErr(os.MkdirAll(cfg.TempDir, 0755), "create temp dir")

	videos, err := decoder.NewRouter(cfg.DecoderBackend, cfg.FFmpegPath, cfg.FFprobePath, log)
	fatalOnErr(err, "create decoder")

	srvCfg := httpapi.ServerConfig{
		Port:           cfg.HTTPPort,
		Capture:        usecase.NewCaptureService(videos, imaging.Factory(cfg.JPEGQuality), archive.NewZipCreator(), log),
		Logger:         log,
		TempDir:        cfg.TempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DownloadURLTTL: time.Duration(cfg.DownloadURLTTLS) * time.Second,
	}

	// The queue-backed job routes need the whole stack; without it the API
	// still serves synchronous extraction.
	if cleanup, err := wireJobs(ctx, cfg, log, &srvCfg); err != nil {
		log.Warn("job routes disabled", zap.Error(err))
	} else {
		defer cleanup()
	}

	srv := httpapi.NewServer(srvCfg)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("screenshot api stopped")
}

func wireJobs(ctx context.Context, cfg *config.Config, log *zap.Logger, srvCfg *httpapi.ServerConfig) (func(), error) {
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ZipBucket:    cfg.MinIOZipBucket,
	})
	if err == nil {
		err = storage.EnsureBuckets(ctx)
	}
	if err != nil {
		pool.Close()
		return nil, err
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	ch, err := conn.Channel()
	if err == nil {
		err = rabbitmq.DeclareTopology(ch, cfg.RabbitMQExchange, cfg.RabbitMQProcessingQueue, cfg.RabbitMQStatusQueue, cfg.RabbitMQDLQ)
		ch.Close()
	}
	var pub *rabbitmq.Publisher
	if err == nil {
		pub, err = rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
	}
	if err != nil {
		conn.Close()
		pool.Close()
		return nil, err
	}

	repo := postgres.NewJobRepository(pool)
	srvCfg.Submit = usecase.NewSubmitJobUseCase(repo, storage, rabbitmq.NewJobPublisher(pub, cfg.RabbitMQProcessingQueue), log, cfg.MaxRetries)
	srvCfg.Jobs = repo
	srvCfg.Links = storage

	return func() {
		pub.Close()
		conn.Close()
		pool.Close()
	}, nil
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
