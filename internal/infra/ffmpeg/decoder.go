package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"go.uber.org/zap"
)

const maxStderrBytes = 8 * 1024

// Decoder opens videos with ffprobe and decodes them through an ffmpeg
// rawvideo pipe.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewDecoder(ffmpegPath, ffprobePath string, logger *zap.Logger) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Decoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// Available reports whether both binaries are on PATH.
func (d *Decoder) Available() bool {
	if _, err := exec.LookPath(d.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(d.ffprobePath)
	return err == nil
}

func (d *Decoder) Open(ctx context.Context, videoPath string) (port.VideoHandle, error) {
	info, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrVideoOpen, err)
	}

	d.logger.Info("video opened",
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.Rate),
		zap.Int("frames", info.FrameCount),
	)

	return &video{
		decoder:   d,
		path:      videoPath,
		info:      *info,
		frameSize: info.Width * info.Height * 3,
	}, nil
}

type video struct {
	decoder   *Decoder
	path      string
	info      probeResult
	frameSize int

	start  float64
	ended  bool
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr *tailBuffer
}

func (v *video) FPS() int {
	return int(v.info.Rate)
}

func (v *video) FrameCount() int {
	return v.info.FrameCount
}

// Seek restarts decoding at index. ffmpeg resolves the input seek to the
// nearest decodable timestamp, so the next frame may differ slightly from a
// frame-exact position.
func (v *video) Seek(_ context.Context, index int) error {
	if index < 0 {
		return fmt.Errorf("negative frame index %d", index)
	}
	v.stop()
	v.start = float64(index) / v.info.Rate
	v.ended = false
	return nil
}

func (v *video) Read(ctx context.Context) (image.Image, bool, error) {
	if v.ended {
		return nil, false, nil
	}
	if v.cmd == nil {
		if err := v.run(ctx); err != nil {
			return nil, false, err
		}
	}

	buf := make([]byte, v.frameSize)
	if _, err := io.ReadFull(v.reader, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if waitErr := v.wait(); waitErr != nil {
				return nil, false, waitErr
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read frame: %w", err)
	}
	return rgbToImage(buf, v.info.Width, v.info.Height), true, nil
}

func (v *video) Close() error {
	v.stop()
	return nil
}

func (v *video) run(ctx context.Context) error {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if v.start > 0 {
		args = append(args, "-ss", strconv.FormatFloat(v.start, 'f', 3, 64))
	}
	args = append(args,
		"-i", v.path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, v.decoder.ffmpegPath, args...)
	stderr := &tailBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	v.cmd = cmd
	v.cancel = cancel
	v.stdout = stdout
	v.stderr = stderr
	v.reader = bufio.NewReaderSize(stdout, v.frameSize)
	return nil
}

// wait reaps a decoder that reached end of stream and reports a failed exit.
func (v *video) wait() error {
	if v.cmd == nil {
		return nil
	}
	err := v.cmd.Wait()
	tail := strings.TrimSpace(v.stderr.String())
	v.cancel()
	v.cmd, v.stdout, v.reader, v.cancel = nil, nil, nil, nil
	v.ended = true
	if err != nil {
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, tail)
	}
	return nil
}

func (v *video) stop() {
	if v.cmd == nil {
		return
	}
	v.cancel()
	v.stdout.Close()
	_ = v.cmd.Wait()
	v.cmd, v.stdout, v.reader, v.cancel = nil, nil, nil, nil
}

func rgbToImage(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
