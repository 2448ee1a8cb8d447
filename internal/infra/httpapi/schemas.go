package httpapi

import (
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type SkippedResponse struct {
	At     string `json:"at"`
	Reason string `json:"reason"`
}

// NoScreenshotsResponse is returned when every requested timestamp was skipped.
type NoScreenshotsResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code"`
	Duration float64           `json:"duration_seconds"`
	Skipped  []SkippedResponse `json:"skipped"`
}

type JobResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Mode            string     `json:"mode"`
	IntervalSeconds int        `json:"interval_seconds,omitempty"`
	Timestamps      []string   `json:"timestamps,omitempty"`
	Naming          string     `json:"naming"`
	Format          string     `json:"format"`
	VideoKey        string     `json:"video_key"`
	ZipKey          string     `json:"zip_key,omitempty"`
	DownloadURL     string     `json:"download_url,omitempty"`
	ScreenshotCount int        `json:"screenshot_count"`
	SkippedCount    int        `json:"skipped_count"`
	Duration        float64    `json:"duration_seconds,omitempty"`
	Attempt         int        `json:"attempt"`
	MaxAttempts     int        `json:"max_attempts"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func SkippedToResponse(skipped []entity.SkippedTimestamp) []SkippedResponse {
	out := make([]SkippedResponse, len(skipped))
	for i, s := range skipped {
		out[i] = SkippedResponse{At: s.At.String(), Reason: string(s.Reason)}
	}
	return out
}

func JobToResponse(j *entity.Job) JobResponse {
	var stamps []string
	for _, ts := range entity.ParseTimestamps(j.Timestamps) {
		stamps = append(stamps, ts.String())
	}
	return JobResponse{
		ID:              j.ID.String(),
		UserID:          j.UserID,
		Status:          string(j.Status),
		Mode:            string(j.Mode),
		IntervalSeconds: j.IntervalSeconds,
		Timestamps:      stamps,
		Naming:          string(j.Naming),
		Format:          j.Format,
		VideoKey:        j.VideoKey,
		ZipKey:          j.ZipKey,
		ScreenshotCount: j.ScreenshotCount,
		SkippedCount:    j.SkippedCount,
		Duration:        j.VideoDuration,
		Attempt:         j.Attempt,
		MaxAttempts:     j.MaxAttempts,
		Error:           j.ErrorMessage,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		CompletedAt:     j.CompletedAt,
	}
}
