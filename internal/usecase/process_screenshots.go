package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProcessScreenshotsUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	capture   *CaptureService
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ProcessScreenshotsConfig struct {
	TempDir    string
	MaxRetries int
}

func NewProcessScreenshotsUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	capture *CaptureService,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessScreenshotsConfig,
) *ProcessScreenshotsUseCase {
	return &ProcessScreenshotsUseCase{
		repo:      repo,
		storage:   storage,
		capture:   capture,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ProcessScreenshotsUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessScreenshotsUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ScreenshotJobMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.String("job.mode", string(msg.Mode)),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	req := msg.Request().Normalize()

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, req, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", nil)
		return nil
	}

	if err := validateJob(msg.VideoKey, req); err != nil {
		log.Warn("rejecting invalid request", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error(), nil)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processPipeline(ctx, job, msg, req, rawMsg, log); err != nil {
		return err
	}

	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func validateJob(videoKey string, req entity.ExtractionRequest) error {
	if _, err := entity.VideoExt(videoKey); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidRequest, err)
	}
	return req.Validate()
}

func (uc *ProcessScreenshotsUseCase) processPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.ScreenshotJobMessage,
	req entity.ExtractionRequest,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer removeAll(workDir, log)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Extract screenshots
	exStart := time.Now()
	ctx3, spanEx := tracer.Start(ctx, "extract_screenshots")
	result, err := uc.capture.Capture(ctx3, videoPath, req, nil)
	if err != nil {
		spanEx.End()
		log.Error("screenshot extraction failed", zap.Error(err))
		if errors.Is(err, entity.ErrVideoOpen) || errors.Is(err, entity.ErrInvalidRequest) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "extract_screenshots: "+err.Error(), nil)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_screenshots: "+err.Error(), log)
	}
	spanEx.SetAttributes(
		attribute.Int("screenshots.captured", len(result.Screenshots)),
		attribute.Int("screenshots.skipped", len(result.Skipped)),
	)
	spanEx.End()
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.ScreenshotsExtractedTotal.Add(float64(len(result.Screenshots)))
	for _, s := range result.Skipped {
		metrics.TimestampsSkippedTotal.WithLabelValues(string(s.Reason)).Inc()
	}

	if len(result.Screenshots) == 0 {
		log.Warn("no screenshots extracted", zap.Int("skipped", len(result.Skipped)))
		job.VideoDuration = result.Duration
		job.SkippedCount = len(result.Skipped)
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "no screenshots could be extracted from the video", result)
	}

	// Create ZIP from screenshots
	zipStart := time.Now()
	ctx4, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "screenshots.zip")
	if err := uc.writeZip(ctx4, result, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload ZIP to MinIO
	upStart := time.Now()
	ctx5, spanUp := tracer.Start(ctx, "upload_zip")
	zipKey := fmt.Sprintf("%s/screenshots_%s.zip", msg.UserID, job.ID.String())
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_zip: "+err.Error(), log)
	}
	zipStat, err := zipFile.Stat()
	if err != nil {
		zipFile.Close()
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "stat_zip: "+err.Error(), log)
	}
	if err := uc.storage.UploadZip(ctx5, zipKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("zip upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_zip: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Mark completed
	job.MarkCompleted(zipKey, result)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, result, log)
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()

	log.Info("job completed successfully",
		zap.Int("screenshot_count", len(result.Screenshots)),
		zap.Int("skipped_count", len(result.Skipped)),
		zap.Float64("duration_secs", result.Duration),
		zap.String("zip_key", zipKey),
	)

	return nil
}

func (uc *ProcessScreenshotsUseCase) writeZip(ctx context.Context, result *entity.ExtractionResult, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	if err := uc.capture.Archive(ctx, result.Screenshots, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (uc *ProcessScreenshotsUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ScreenshotJobMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, nil)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, nil, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

// handlePermanentFailure fails the job for good: no further attempts are made.
func (uc *ProcessScreenshotsUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ScreenshotJobMessage,
	rawMsg []byte,
	errMsg string,
	result *entity.ExtractionResult,
) error {
	job.MarkFailed(errMsg)
	job.Exhaust()
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, result, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessScreenshotsUseCase) publishStatus(ctx context.Context, job *entity.Job, result *entity.ExtractionResult, log *zap.Logger) {
	statusMsg := entity.ScreenshotStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		VideoKey:        job.VideoKey,
		ZipKey:          job.ZipKey,
		ScreenshotCount: job.ScreenshotCount,
		Duration:        job.VideoDuration,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	if result != nil {
		statusMsg.Skipped = entity.NewSkippedMessages(result.Skipped)
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func removeAll(dir string, log *zap.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("temp cleanup failed", zap.Error(fmt.Errorf("%w: %v", entity.ErrCleanup, err)))
	}
}
