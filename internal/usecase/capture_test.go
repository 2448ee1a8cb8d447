package usecase

import (
	"bytes"
	"context"
	"testing"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCaptureServiceAppliesDefaults(t *testing.T) {
	opener := &fakeOpener{video: &fakeVideo{fps: 4, frames: 40}}
	svc := NewCaptureService(opener, fakeEncoders, nameArchiver{}, zap.NewNop())

	result, err := svc.Capture(context.Background(), "/videos/a.mp4", entity.ExtractionRequest{
		Timestamps: entity.ParseTimestamps("0:02\n0:01"),
		Format:     "JPEG",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"0-01.jpg", "0-02.jpg"}, result.Names())
	assert.Equal(t, []string{"/videos/a.mp4"}, opener.opened)

	var buf bytes.Buffer
	require.NoError(t, svc.Archive(context.Background(), result.Screenshots, &buf))
	assert.Equal(t, "0-01.jpg\n0-02.jpg\n", buf.String())
}

func TestCaptureServiceRejectsBeforeOpening(t *testing.T) {
	opener := &fakeOpener{video: &fakeVideo{fps: 4, frames: 40}}
	svc := NewCaptureService(opener, fakeEncoders, nameArchiver{}, zap.NewNop())

	_, err := svc.Capture(context.Background(), "a.mp4", entity.ExtractionRequest{Mode: entity.ModeTimestamps}, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	_, err = svc.Capture(context.Background(), "a.mp4", entity.ExtractionRequest{Mode: entity.ModeInterval, IntervalSeconds: 1, Format: "webp"}, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	assert.Empty(t, opener.opened)
}

func TestCaptureServiceForwardsProgress(t *testing.T) {
	opener := &fakeOpener{video: &fakeVideo{fps: 1, frames: 3}}
	svc := NewCaptureService(opener, fakeEncoders, nameArchiver{}, zap.NewNop())

	var done []int
	_, err := svc.Capture(context.Background(), "a.mp4", entity.ExtractionRequest{Mode: entity.ModeInterval, IntervalSeconds: 1},
		func(d, _ int) { done = append(done, d) })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, done)
}
