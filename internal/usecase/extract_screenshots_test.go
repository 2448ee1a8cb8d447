package usecase

import (
	"context"
	"testing"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor() *ScreenshotExtractor {
	return NewScreenshotExtractor(fakeEncoder{}, zap.NewNop())
}

func TestExtractAtAllWithinDuration(t *testing.T) {
	video := &fakeVideo{fps: 10, frames: 1000}
	requests := entity.ParseTimestamps("0:05\n1:00\n1:30")

	result, err := newTestExtractor().ExtractAt(context.Background(), video, requests, entity.NamingDash)
	require.NoError(t, err)

	assert.Len(t, result.Screenshots, len(requests))
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 100.0, result.Duration)
	assert.Equal(t, []int{50, 600, 900}, video.seeks)
	assert.Equal(t, "frame-600", string(result.Screenshots[1].Data))
	assert.Equal(t, 1, video.closed)
}

func TestExtractAtOrdersChronologically(t *testing.T) {
	video := &fakeVideo{fps: 10, frames: 2000}
	requests := entity.ParseTimestamps("3:00\n1:00\n2:30")

	result, err := newTestExtractor().ExtractAt(context.Background(), video, requests, entity.NamingDash)
	require.NoError(t, err)

	assert.Equal(t, []string{"1-00.jpg", "2-30.jpg", "3-00.jpg"}, result.Names())
	assert.Equal(t, []int{600, 1500, 1800}, video.seeks)
	for i, s := range result.Screenshots {
		assert.Equal(t, video.seeks[i], s.FrameIndex)
	}
}

func TestExtractAtSkipsBeyondDuration(t *testing.T) {
	video := &fakeVideo{fps: 25, frames: 25 * 90}
	requests := []entity.Timestamp{{Minutes: 2, Seconds: 0}, {Minutes: 1, Seconds: 0}, {Minutes: 1, Seconds: 31}}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, requests, entity.NamingMinuteSecond)
	require.NoError(t, err)

	assert.Equal(t, []string{"screenshot_1m_00s.jpg"}, result.Names())
	assert.Equal(t, []entity.SkippedTimestamp{
		{At: entity.Timestamp{Minutes: 1, Seconds: 31}, Reason: entity.SkipExceedsDuration},
		{At: entity.Timestamp{Minutes: 2, Seconds: 0}, Reason: entity.SkipExceedsDuration},
	}, result.Skipped)
	assert.Equal(t, []int{1500}, video.seeks, "no seek for timestamps past the end")
}

func TestExtractAtReadFailureContinues(t *testing.T) {
	video := &fakeVideo{fps: 10, frames: 600, broken: map[int]bool{200: true}}
	requests := entity.ParseTimestamps("0:10\n0:20\n0:30")

	result, err := newTestExtractor().ExtractAt(context.Background(), video, requests, entity.NamingDash)
	require.NoError(t, err)

	assert.Equal(t, []string{"0-10.jpg", "0-30.jpg"}, result.Names())
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, entity.SkipReadFailure, result.Skipped[0].Reason)
	assert.Equal(t, entity.Timestamp{Minutes: 0, Seconds: 20}, result.Skipped[0].At)
}

func TestExtractAtHugeMinutesSkipInsteadOfWrapping(t *testing.T) {
	video := &fakeVideo{fps: 10, frames: 1000}
	requests := []entity.Timestamp{{Minutes: 4611686018427387905}, {Minutes: 1}}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, requests, entity.NamingDash)
	require.NoError(t, err)

	assert.Equal(t, []string{"1-00.jpg"}, result.Names())
	assert.Equal(t, []entity.SkippedTimestamp{
		{At: entity.Timestamp{Minutes: 4611686018427387905}, Reason: entity.SkipExceedsDuration},
	}, result.Skipped)
	assert.Equal(t, []int{600}, video.seeks)

	assert.Empty(t, entity.ParseTimestamps("4611686018427387905:00"))
}

func TestExtractAtExactDurationIsAttempted(t *testing.T) {
	// 0:10 equals the duration, so it is seeked, but no frame exists at index 100.
	video := &fakeVideo{fps: 10, frames: 100}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, entity.ParseTimestamps("0:10"), entity.NamingDash)
	require.NoError(t, err)

	assert.Empty(t, result.Screenshots)
	assert.Equal(t, []int{100}, video.seeks)
	assert.Equal(t, []entity.SkippedTimestamp{{At: entity.Timestamp{Seconds: 10}, Reason: entity.SkipReadFailure}}, result.Skipped)
}

func TestExtractAtEmptyRequests(t *testing.T) {
	video := &fakeVideo{fps: 30, frames: 300}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, nil, entity.NamingDash)
	require.NoError(t, err)

	assert.Empty(t, result.Screenshots)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, video.seeks)
	assert.Equal(t, 1, video.closed)
}

func TestExtractAtAllSkippedIsNotAnError(t *testing.T) {
	video := &fakeVideo{fps: 30, frames: 300}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, entity.ParseTimestamps("5:00\n9:59"), entity.NamingDash)
	require.NoError(t, err)

	assert.Empty(t, result.Screenshots)
	assert.Len(t, result.Skipped, 2)
}

func TestExtractAtKeepsDuplicates(t *testing.T) {
	video := &fakeVideo{fps: 10, frames: 1000}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, entity.ParseTimestamps("0:30\n0:30"), entity.NamingIndexed)
	require.NoError(t, err)

	assert.Equal(t, []string{"screenshot_0000_at_30s.jpg", "screenshot_0001_at_30s.jpg"}, result.Names())
}

func TestExtractAtTruncatedFPS(t *testing.T) {
	// A 29.97 fps source reports 29; duration and frame index both use 29.
	video := &fakeVideo{fps: 29, frames: 2997}

	result, err := newTestExtractor().ExtractAt(context.Background(), video, entity.ParseTimestamps("1:43\n1:44"), entity.NamingDash)
	require.NoError(t, err)

	assert.InDelta(t, 103.34, result.Duration, 0.01)
	assert.Equal(t, []int{2987}, video.seeks)
	assert.Equal(t, []string{"1-43.jpg"}, result.Names())
	assert.Equal(t, entity.SkipExceedsDuration, result.Skipped[0].Reason)
}

func TestExtractRejectsZeroFPS(t *testing.T) {
	video := &fakeVideo{fps: 0, frames: 10}

	_, err := newTestExtractor().ExtractAt(context.Background(), video, entity.ParseTimestamps("0:01"), entity.NamingDash)
	assert.ErrorIs(t, err, entity.ErrVideoOpen)
	assert.Equal(t, 1, video.closed)
}

func TestExtractAtCancelledClosesVideo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	video := &fakeVideo{fps: 10, frames: 1000}
	video.onRead = func(pos int) {
		if pos >= 200 {
			cancel()
		}
	}

	result, err := newTestExtractor().ExtractAt(ctx, video, entity.ParseTimestamps("0:10\n0:20\n0:30"), entity.NamingDash)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, []string{"0-10.jpg", "0-20.jpg"}, result.Names())
	assert.Equal(t, 1, video.closed)
}

func TestExtractAtIdempotentNames(t *testing.T) {
	requests := entity.ParseTimestamps("2:00\n0:15\n1:05")

	first, err := newTestExtractor().ExtractAt(context.Background(), &fakeVideo{fps: 24, frames: 24 * 200}, requests, entity.NamingMinuteSecond)
	require.NoError(t, err)
	second, err := newTestExtractor().ExtractAt(context.Background(), &fakeVideo{fps: 24, frames: 24 * 200}, requests, entity.NamingMinuteSecond)
	require.NoError(t, err)

	assert.Equal(t, first.Names(), second.Names())
}

func TestExtractAtReportsProgress(t *testing.T) {
	var calls [][2]int
	ex := newTestExtractor().WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	_, err := ex.ExtractAt(context.Background(), &fakeVideo{fps: 10, frames: 100}, entity.ParseTimestamps("0:01\n9:00"), entity.NamingDash)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestExtractEveryCapturesMultiplesOfInterval(t *testing.T) {
	video := &fakeVideo{fps: 5, frames: 23}

	result, err := newTestExtractor().ExtractEvery(context.Background(), video, 2, entity.NamingIndexed)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"screenshot_0000_at_0s.jpg",
		"screenshot_0001_at_2s.jpg",
		"screenshot_0002_at_4s.jpg",
	}, result.Names())
	assert.Equal(t, "frame-20", string(result.Screenshots[2].Data))
	assert.Empty(t, video.seeks, "interval mode never seeks")
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 1, video.closed)
}

func TestExtractEveryStopsAtFirstUnreadableFrame(t *testing.T) {
	video := &fakeVideo{fps: 1, frames: 10, broken: map[int]bool{4: true}}

	result, err := newTestExtractor().ExtractEvery(context.Background(), video, 3, entity.NamingDash)
	require.NoError(t, err)

	assert.Equal(t, []string{"0-00.jpg", "0-03.jpg"}, result.Names())
}

func TestExtractEveryRejectsNonPositiveInterval(t *testing.T) {
	video := &fakeVideo{fps: 1, frames: 10}

	_, err := newTestExtractor().ExtractEvery(context.Background(), video, 0, entity.NamingIndexed)
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)
	assert.Equal(t, 1, video.closed)
}

func TestExtractEveryProgressUnknownTotal(t *testing.T) {
	var calls [][2]int
	ex := newTestExtractor().WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	video := &fakeVideo{fps: 1, frames: 3, hideCount: true}
	result, err := ex.ExtractEvery(context.Background(), video, 1, entity.NamingIndexed)
	require.NoError(t, err)

	assert.Len(t, result.Screenshots, 3)
	assert.Equal(t, [][2]int{{1, -1}, {2, -1}, {3, -1}}, calls)
}

func TestExtractEveryProgressKnownTotal(t *testing.T) {
	var lastTotal int
	ex := newTestExtractor().WithProgress(func(_, total int) { lastTotal = total })

	_, err := ex.ExtractEvery(context.Background(), &fakeVideo{fps: 1, frames: 3}, 1, entity.NamingIndexed)
	require.NoError(t, err)
	assert.Equal(t, 3, lastTotal)
}

func TestExtractEveryRejectsIntervalOverflowingFrameIndex(t *testing.T) {
	video := &fakeVideo{fps: 24, frames: 240}

	result, err := newTestExtractor().Extract(context.Background(), video, entity.ExtractionRequest{
		Mode: entity.ModeInterval, IntervalSeconds: 2305843009213693952, Naming: entity.NamingIndexed,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)
	assert.Nil(t, result)
	assert.Equal(t, 1, video.closed)
}

func TestExtractDispatchesOnMode(t *testing.T) {
	ex := newTestExtractor()

	res, err := ex.Extract(context.Background(), &fakeVideo{fps: 2, frames: 8}, entity.ExtractionRequest{
		Mode: entity.ModeInterval, IntervalSeconds: 1, Naming: entity.NamingIndexed,
	})
	require.NoError(t, err)
	assert.Len(t, res.Screenshots, 4)

	res, err = ex.Extract(context.Background(), &fakeVideo{fps: 2, frames: 8}, entity.ExtractionRequest{
		Mode: entity.ModeTimestamps, Timestamps: entity.ParseTimestamps("0:01"), Naming: entity.NamingDash,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0-01.jpg"}, res.Names())

	video := &fakeVideo{fps: 2, frames: 8}
	_, err = ex.Extract(context.Background(), video, entity.ExtractionRequest{Mode: "random"})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)
	assert.Equal(t, 1, video.closed)
}
