package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SubmitJobInput is an uploaded video plus the extraction it should go through.
type SubmitJobInput struct {
	UserID      string
	UserEmail   string
	Filename    string
	ContentType string
	Video       io.Reader
	Size        int64
	Request     entity.ExtractionRequest
}

// SubmitJobUseCase stores an upload and queues it for the worker.
type SubmitJobUseCase struct {
	repo        port.JobRepository
	storage     port.VideoStorage
	publisher   port.JobPublisher
	logger      *zap.Logger
	maxAttempts int
}

func NewSubmitJobUseCase(repo port.JobRepository, storage port.VideoStorage, publisher port.JobPublisher, logger *zap.Logger, maxAttempts int) *SubmitJobUseCase {
	return &SubmitJobUseCase{
		repo:        repo,
		storage:     storage,
		publisher:   publisher,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

func (uc *SubmitJobUseCase) Execute(ctx context.Context, in SubmitJobInput) (*entity.Job, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "SubmitJobUseCase.Execute")
	defer span.End()

	ext, err := entity.VideoExt(in.Filename)
	if err != nil {
		return nil, err
	}
	req := in.Request.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", entity.ErrInvalidRequest)
	}

	job := entity.NewJob(in.UserID, "", in.Size, req, uc.maxAttempts)
	job.VideoKey = fmt.Sprintf("%s/%s.%s", in.UserID, job.ID, ext)
	span.SetAttributes(attribute.String("job.id", job.ID.String()), attribute.String("job.mode", string(req.Mode)))
	log := uc.logger.With(zap.String("job_id", job.ID.String()), zap.String("video_key", job.VideoKey))

	if err := uc.storage.UploadVideo(ctx, job.VideoKey, in.Video, in.Size, in.ContentType); err != nil {
		log.Error("failed to store upload", zap.Error(err))
		return nil, err
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		log.Error("failed to create job record", zap.Error(err))
		return nil, fmt.Errorf("create job: %w", err)
	}

	msg := entity.ScreenshotJobMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		VideoKey:        job.VideoKey,
		FileSize:        job.FileSize,
		UserEmail:       in.UserEmail,
		Mode:            req.Mode,
		IntervalSeconds: req.IntervalSeconds,
		Timestamps:      job.Timestamps,
		Naming:          req.Naming,
		Format:          req.Format,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal job message: %w", err)
	}

	if err := uc.publisher.PublishJob(ctx, body); err != nil {
		log.Error("failed to queue job", zap.Error(err))
		job.MarkFailed("queue_job: " + err.Error())
		job.Exhaust()
		_ = uc.repo.Update(ctx, job)
		return nil, fmt.Errorf("queue job: %w", err)
	}

	log.Info("job queued", zap.String("mode", string(req.Mode)), zap.Int64("file_size", in.Size))
	return job, nil
}
