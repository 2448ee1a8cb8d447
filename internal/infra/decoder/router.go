// Package decoder picks a video backend per file.
package decoder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/mpegdec"
	"go.uber.org/zap"
)

const (
	BackendAuto   = "auto"
	BackendFFmpeg = "ffmpeg"
	BackendMPEG   = "mpeg"
)

// Router sends MPEG-1 files to the pure-Go decoder when ffmpeg is missing
// or when the mpeg backend is forced; everything else goes to ffmpeg.
type Router struct {
	backend string
	ffmpeg  port.VideoOpener
	mpeg    port.VideoOpener
	hasFF   bool
}

func NewRouter(backend, ffmpegPath, ffprobePath string, logger *zap.Logger) (*Router, error) {
	switch backend {
	case "":
		backend = BackendAuto
	case BackendAuto, BackendFFmpeg, BackendMPEG:
	default:
		return nil, fmt.Errorf("unknown decoder backend %q", backend)
	}

	ff := ffmpeg.NewDecoder(ffmpegPath, ffprobePath, logger.Named("ffmpeg"))
	r := &Router{
		backend: backend,
		ffmpeg:  ff,
		mpeg:    mpegdec.NewDecoder(logger.Named("mpeg")),
		hasFF:   ff.Available(),
	}
	if !r.hasFF && backend != BackendMPEG {
		logger.Warn("ffmpeg not found on PATH, only mpg/mpeg sources can be decoded")
	}
	return r, nil
}

func (r *Router) Open(ctx context.Context, path string) (port.VideoHandle, error) {
	return r.pick(path).Open(ctx, path)
}

func (r *Router) pick(path string) port.VideoOpener {
	if r.backend == BackendMPEG {
		return r.mpeg
	}
	if r.backend == BackendAuto && !r.hasFF && isMPEG1(path) {
		return r.mpeg
	}
	return r.ffmpeg
}

func isMPEG1(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mpg", ".mpeg":
		return true
	}
	return false
}

// Check reports whether path can be opened by any configured backend.
func (r *Router) Check(path string) error {
	if _, err := entity.VideoExt(path); err != nil {
		return err
	}
	if r.pick(path) == r.ffmpeg && !r.hasFF {
		return fmt.Errorf("%w: ffmpeg is not installed", entity.ErrVideoOpen)
	}
	return nil
}
