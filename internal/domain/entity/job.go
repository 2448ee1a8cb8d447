package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

type Job struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	ZipKey          string
	Status          JobStatus
	Mode            Mode
	IntervalSeconds int
	Timestamps      string
	Naming          NamingPolicy
	Format          string
	ScreenshotCount int
	SkippedCount    int
	FileSize        int64
	VideoDuration   float64
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, req ExtractionRequest, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:              uuid.New(),
		UserID:          userID,
		VideoKey:        videoKey,
		FileSize:        fileSize,
		Status:          JobStatusPending,
		Mode:            req.Mode,
		IntervalSeconds: req.IntervalSeconds,
		Timestamps:      FormatTimestamps(req.Timestamps),
		Naming:          req.Naming,
		Format:          req.Format,
		Attempt:         0,
		MaxAttempts:     maxAttempts,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(zipKey string, result *ExtractionResult) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ZipKey = zipKey
	j.ScreenshotCount = len(result.Screenshots)
	j.SkippedCount = len(result.Skipped)
	j.VideoDuration = result.Duration
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// Exhaust burns the remaining attempts so the job is never retried.
func (j *Job) Exhaust() {
	j.Attempt = j.MaxAttempts
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// Request rebuilds the extraction request persisted with the job.
func (j *Job) Request() ExtractionRequest {
	return ExtractionRequest{
		Mode:            j.Mode,
		IntervalSeconds: j.IntervalSeconds,
		Timestamps:      ParseTimestamps(j.Timestamps),
		Naming:          j.Naming,
		Format:          j.Format,
	}
}
