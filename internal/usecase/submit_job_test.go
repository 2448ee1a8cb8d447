package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingJobPublisher struct {
	messages []entity.ScreenshotJobMessage
	err      error
}

func (p *recordingJobPublisher) PublishJob(_ context.Context, body []byte) error {
	if p.err != nil {
		return p.err
	}
	var msg entity.ScreenshotJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func submitInput(filename string, req entity.ExtractionRequest) SubmitJobInput {
	return SubmitJobInput{
		UserID:    "user-7",
		UserEmail: "user7@example.com",
		Filename:  filename,
		Video:     strings.NewReader("fake video bytes"),
		Size:      16,
		Request:   req,
	}
}

func TestSubmitJobQueuesMessage(t *testing.T) {
	repo, storage, pub := newMemRepo(), &memStorage{}, &recordingJobPublisher{}
	uc := NewSubmitJobUseCase(repo, storage, pub, zap.NewNop(), 4)

	job, err := uc.Execute(context.Background(), submitInput("Holiday.MOV", entity.ExtractionRequest{
		Timestamps: entity.ParseTimestamps("1:30\n0:10"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "user-7/"+job.ID.String()+".mov", job.VideoKey)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, 4, job.MaxAttempts)
	assert.Equal(t, "fake video bytes", string(storage.videos[job.VideoKey]))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NamingDash, stored.Naming)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, job.ID, msg.JobID)
	assert.Equal(t, "user7@example.com", msg.UserEmail)
	assert.Equal(t, entity.ModeTimestamps, msg.Mode)
	assert.Equal(t, "1:30\n0:10", msg.Timestamps)
	assert.Equal(t, "jpg", msg.Format)
}

func TestSubmitJobRejectsBeforeUpload(t *testing.T) {
	tests := []struct {
		name    string
		in      SubmitJobInput
		wantErr error
	}{
		{"unsupported extension", submitInput("notes.pdf", entity.ExtractionRequest{Mode: entity.ModeInterval, IntervalSeconds: 1}), entity.ErrUnsupportedFormat},
		{"empty timestamps", submitInput("a.mp4", entity.ExtractionRequest{Mode: entity.ModeTimestamps}), entity.ErrInvalidRequest},
		{"missing user", SubmitJobInput{Filename: "a.mp4", Request: entity.ExtractionRequest{IntervalSeconds: 2}}, entity.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, pub := &memStorage{}, &recordingJobPublisher{}
			uc := NewSubmitJobUseCase(newMemRepo(), storage, pub, zap.NewNop(), 3)

			_, err := uc.Execute(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, storage.videos)
			assert.Empty(t, pub.messages)
		})
	}
}

func TestSubmitJobPublishFailureFailsJob(t *testing.T) {
	repo := newMemRepo()
	pub := &recordingJobPublisher{err: errors.New("channel closed")}
	uc := NewSubmitJobUseCase(repo, &memStorage{}, pub, zap.NewNop(), 3)

	_, err := uc.Execute(context.Background(), submitInput("a.mp4", entity.ExtractionRequest{IntervalSeconds: 5}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, entity.JobStatusFailed, job.Status)
		assert.False(t, job.CanRetry())
	}
}

func TestSubmitJobUploadFailure(t *testing.T) {
	repo := newMemRepo()
	uc := NewSubmitJobUseCase(repo, &memStorage{uploadErr: errors.New("bucket missing")}, &recordingJobPublisher{}, zap.NewNop(), 3)

	_, err := uc.Execute(context.Background(), submitInput("a.mkv", entity.ExtractionRequest{IntervalSeconds: 5}))
	require.Error(t, err)
	assert.Empty(t, repo.jobs)
}
