package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"go.uber.org/zap"
)

// ProgressFunc receives the number of processed units out of total.
// total is -1 when the frame count is unknown.
type ProgressFunc func(done, total int)

// ScreenshotExtractor captures frames from an opened video.
//
// Two strategies exist. Timestamp mode seeks to floor(t*fps) for every
// requested second; interval mode decodes sequentially and keeps every
// (interval*fps)-th frame. Seeks land on whatever the decoder resolves the
// position to, so the two modes can return different frames for the same
// nominal second.
//
// fps is the decoder rate truncated to an integer, and both duration and
// frame indexes derive from it. For 29.97 fps sources this shifts captures
// slightly; the behaviour is kept on purpose so results stay reproducible.
type ScreenshotExtractor struct {
	encoder    port.ImageEncoder
	logger     *zap.Logger
	onProgress ProgressFunc
}

func NewScreenshotExtractor(encoder port.ImageEncoder, logger *zap.Logger) *ScreenshotExtractor {
	return &ScreenshotExtractor{encoder: encoder, logger: logger}
}

// WithProgress returns a copy reporting progress to fn.
func (e *ScreenshotExtractor) WithProgress(fn ProgressFunc) *ScreenshotExtractor {
	cp := *e
	cp.onProgress = fn
	return &cp
}

// Extract runs the strategy selected by req.Mode. The video is always closed.
func (e *ScreenshotExtractor) Extract(ctx context.Context, video port.VideoHandle, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	switch req.Mode {
	case entity.ModeInterval:
		return e.ExtractEvery(ctx, video, req.IntervalSeconds, req.Naming)
	case entity.ModeTimestamps:
		return e.ExtractAt(ctx, video, req.Timestamps, req.Naming)
	default:
		closeVideo(video, e.logger)
		return nil, fmt.Errorf("%w: unknown mode %q", entity.ErrInvalidRequest, req.Mode)
	}
}

// ExtractAt captures one frame per timestamp, in chronological order.
// Timestamps past the end of the video or unreadable frames become skips.
func (e *ScreenshotExtractor) ExtractAt(ctx context.Context, video port.VideoHandle, requests []entity.Timestamp, naming entity.NamingPolicy) (*entity.ExtractionResult, error) {
	defer closeVideo(video, e.logger)

	result, err := newResult(video)
	if err != nil {
		return nil, err
	}

	sorted := entity.SortTimestamps(requests)
	for i, ts := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		target := ts.TotalSeconds()
		if float64(target) > result.Duration {
			e.skip(result, ts, entity.SkipExceedsDuration, nil)
			e.progress(i+1, len(sorted))
			continue
		}

		index := target * result.FPS
		data, err := e.capture(ctx, video, index)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			e.skip(result, ts, entity.SkipReadFailure, err)
			e.progress(i+1, len(sorted))
			continue
		}

		result.Screenshots = append(result.Screenshots, entity.Screenshot{
			Name:       naming.Name(len(result.Screenshots), ts, e.encoder.Ext()),
			At:         ts,
			FrameIndex: index,
			Data:       data,
		})
		e.progress(i+1, len(sorted))
	}

	e.logger.Info("screenshots extracted",
		zap.Int("requested", len(requests)),
		zap.Int("captured", len(result.Screenshots)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Float64("duration", result.Duration),
	)
	return result, nil
}

// ExtractEvery decodes the whole video and keeps every frame whose index is a
// multiple of intervalSeconds*fps. Decoding stops at the first missing frame.
func (e *ScreenshotExtractor) ExtractEvery(ctx context.Context, video port.VideoHandle, intervalSeconds int, naming entity.NamingPolicy) (*entity.ExtractionResult, error) {
	defer closeVideo(video, e.logger)

	if intervalSeconds < 1 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", entity.ErrInvalidRequest, intervalSeconds)
	}

	result, err := newResult(video)
	if err != nil {
		return nil, err
	}

	if intervalSeconds > math.MaxInt/result.FPS {
		return nil, fmt.Errorf("%w: interval of %d seconds is too long at %d fps", entity.ErrInvalidRequest, intervalSeconds, result.FPS)
	}
	intervalFrames := intervalSeconds * result.FPS

	total := result.TotalFrames
	if total <= 0 {
		total = -1
	}

	for frameCount := 0; ; frameCount++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		frame, ok, err := video.Read(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			e.logger.Warn("frame read failed, stopping", zap.Int("frame", frameCount), zap.Error(err))
			break
		}
		if !ok {
			break
		}

		if frameCount%intervalFrames == 0 {
			var buf bytes.Buffer
			if err := e.encoder.Encode(&buf, frame); err != nil {
				return result, fmt.Errorf("encode frame %d: %w", frameCount, err)
			}
			ts := entity.TimestampAt(frameCount / result.FPS)
			result.Screenshots = append(result.Screenshots, entity.Screenshot{
				Name:       naming.Name(len(result.Screenshots), ts, e.encoder.Ext()),
				At:         ts,
				FrameIndex: frameCount,
				Data:       buf.Bytes(),
			})
			e.logger.Debug("screenshot captured", zap.Int("frame", frameCount), zap.Stringer("at", ts))
		}

		e.progress(frameCount+1, total)
	}

	e.logger.Info("interval screenshots extracted",
		zap.Int("interval_seconds", intervalSeconds),
		zap.Int("captured", len(result.Screenshots)),
		zap.Float64("duration", result.Duration),
	)
	return result, nil
}

func (e *ScreenshotExtractor) capture(ctx context.Context, video port.VideoHandle, index int) ([]byte, error) {
	if err := video.Seek(ctx, index); err != nil {
		return nil, fmt.Errorf("%w: seek to frame %d: %v", entity.ErrDecode, index, err)
	}
	frame, ok, err := video.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read frame %d: %v", entity.ErrDecode, index, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no frame at index %d", entity.ErrDecode, index)
	}
	var buf bytes.Buffer
	if err := e.encoder.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("%w: encode frame %d: %v", entity.ErrDecode, index, err)
	}
	return buf.Bytes(), nil
}

func (e *ScreenshotExtractor) skip(result *entity.ExtractionResult, ts entity.Timestamp, reason entity.SkipReason, cause error) {
	result.Skipped = append(result.Skipped, entity.SkippedTimestamp{At: ts, Reason: reason})
	fields := []zap.Field{zap.Stringer("at", ts), zap.String("reason", string(reason))}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	e.logger.Warn("timestamp skipped", fields...)
}

func (e *ScreenshotExtractor) progress(done, total int) {
	if e.onProgress != nil {
		e.onProgress(done, total)
	}
}

func newResult(video port.VideoHandle) (*entity.ExtractionResult, error) {
	fps := video.FPS()
	if fps < 1 {
		return nil, fmt.Errorf("%w: frame rate %d is below 1 fps", entity.ErrVideoOpen, fps)
	}
	total := video.FrameCount()
	return &entity.ExtractionResult{
		Screenshots: []entity.Screenshot{},
		Skipped:     []entity.SkippedTimestamp{},
		Duration:    float64(total) / float64(fps),
		FPS:         fps,
		TotalFrames: total,
	}, nil
}

func closeVideo(video port.VideoHandle, logger *zap.Logger) {
	if err := video.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("close video", zap.Error(err))
	}
}
