package entity

import "github.com/google/uuid"

// ScreenshotJobMessage is the inbound message from the screenshot.processing queue.
type ScreenshotJobMessage struct {
	JobID           uuid.UUID    `json:"job_id"`
	UserID          string       `json:"user_id"`
	VideoKey        string       `json:"video_key"`
	FileSize        int64        `json:"file_size"`
	UserEmail       string       `json:"user_email"`
	Mode            Mode         `json:"mode"`
	IntervalSeconds int          `json:"interval_seconds,omitempty"`
	Timestamps      string       `json:"timestamps,omitempty"`
	Naming          NamingPolicy `json:"naming,omitempty"`
	Format          string       `json:"format,omitempty"`
}

func (m ScreenshotJobMessage) Request() ExtractionRequest {
	return ExtractionRequest{
		Mode:            m.Mode,
		IntervalSeconds: m.IntervalSeconds,
		Timestamps:      ParseTimestamps(m.Timestamps),
		Naming:          m.Naming,
		Format:          m.Format,
	}
}

// SkippedMessage is one skipped timestamp as reported on the status queue.
type SkippedMessage struct {
	At     string `json:"at"`
	Reason string `json:"reason"`
}

// ScreenshotStatusMessage is the outbound message published to the screenshot.status queue.
type ScreenshotStatusMessage struct {
	JobID           uuid.UUID        `json:"job_id"`
	UserID          string           `json:"user_id"`
	Status          JobStatus        `json:"status"`
	VideoKey        string           `json:"video_key"`
	ZipKey          string           `json:"zip_key,omitempty"`
	ScreenshotCount int              `json:"screenshot_count,omitempty"`
	Skipped         []SkippedMessage `json:"skipped,omitempty"`
	Duration        float64          `json:"duration_seconds,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Attempt         int              `json:"attempt"`
	MaxAttempts     int              `json:"max_attempts"`
}

func NewSkippedMessages(skipped []SkippedTimestamp) []SkippedMessage {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]SkippedMessage, len(skipped))
	for i, s := range skipped {
		out[i] = SkippedMessage{At: s.At.String(), Reason: string(s.Reason)}
	}
	return out
}
