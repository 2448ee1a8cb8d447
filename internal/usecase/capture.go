package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"go.uber.org/zap"
)

// EncoderFactory builds the image encoder for an output format such as "jpg".
type EncoderFactory func(format string) (port.ImageEncoder, error)

// CaptureService opens a local video file, extracts screenshots and archives them.
// It is shared by the queue worker, the HTTP API and the CLI.
type CaptureService struct {
	opener   port.VideoOpener
	encoders EncoderFactory
	archiver port.Archiver
	logger   *zap.Logger
}

func NewCaptureService(opener port.VideoOpener, encoders EncoderFactory, archiver port.Archiver, logger *zap.Logger) *CaptureService {
	return &CaptureService{opener: opener, encoders: encoders, archiver: archiver, logger: logger}
}

// Capture validates req, opens videoPath and runs the extraction. Only a
// failure to open the video or an invalid request is returned as an error;
// per-timestamp failures end up in the result's skip list.
func (s *CaptureService) Capture(ctx context.Context, videoPath string, req entity.ExtractionRequest, progress ProgressFunc) (*entity.ExtractionResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	encoder, err := s.encoders(req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidRequest, err)
	}

	video, err := s.opener.Open(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	extractor := NewScreenshotExtractor(encoder, s.logger).WithProgress(progress)
	return extractor.Extract(ctx, video, req)
}

func (s *CaptureService) Archive(ctx context.Context, shots []entity.Screenshot, w io.Writer) error {
	return s.archiver.WriteArchive(ctx, shots, w)
}
