// Package mpegdec decodes MPEG-1 program streams in pure Go, for hosts without ffmpeg.
package mpegdec

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"github.com/gen2brain/mpeg"
	"go.uber.org/zap"
)

type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(_ context.Context, videoPath string) (port.VideoHandle, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrVideoOpen, err)
	}

	mpg, err := mpeg.New(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", entity.ErrVideoOpen, err)
	}
	if !mpg.HasHeaders() {
		file.Close()
		return nil, fmt.Errorf("%w: no mpeg headers found", entity.ErrVideoOpen)
	}
	mpg.SetAudioEnabled(false)

	frames := int(mpg.Duration().Seconds() * mpg.Framerate())
	d.logger.Info("video opened",
		zap.Int("width", mpg.Width()),
		zap.Int("height", mpg.Height()),
		zap.Float64("fps", mpg.Framerate()),
		zap.Int("frames", frames),
	)

	return &video{file: file, mpg: mpg, frames: frames}, nil
}

type video struct {
	file    *os.File
	mpg     *mpeg.MPEG
	frames  int
	pending *time.Duration
}

func (v *video) FPS() int {
	return int(v.mpg.Framerate())
}

func (v *video) FrameCount() int {
	return v.frames
}

func (v *video) Seek(_ context.Context, index int) error {
	if index < 0 {
		return fmt.Errorf("negative frame index %d", index)
	}
	at := time.Duration(float64(index) / v.mpg.Framerate() * float64(time.Second))
	v.pending = &at
	return nil
}

// Read returns an image backed by decoder buffers; it is only valid until the next call.
func (v *video) Read(ctx context.Context) (image.Image, bool, error) {
	if v.pending != nil {
		at := *v.pending
		v.pending = nil
		if at > v.mpg.Duration() {
			return nil, false, nil
		}
		frame := v.mpg.SeekFrame(at, true)
		if frame == nil {
			return nil, false, nil
		}
		return frame.YCbCr(), true, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if frame := v.mpg.DecodeVideo(); frame != nil {
			return frame.YCbCr(), true, nil
		}
		if v.mpg.HasEnded() {
			return nil, false, nil
		}
	}
}

func (v *video) Close() error {
	return v.file.Close()
}
