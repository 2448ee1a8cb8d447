package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/archive"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/decoder"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/imaging"
	"github.com/fiapx/fiapx-screenshot-service/internal/usecase"
	"github.com/fiapx/fiapx-screenshot-service/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type extractOptions struct {
	Input    string
	Output   string
	Every    int
	At       string
	AtFile   string
	Naming   string
	Format   string
	Quality  int
	Decoder  string
	FFmpeg   string
	FFprobe  string
	LogLevel string
	Quiet    bool
}

func newExtractCmd() *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract screenshots into a zip archive",
		Example: `  snap extract -i talk.mp4 --at "1:30,2:05" -o talk.zip
  snap extract -i talk.mp4 --every 10 --naming minute_second
  snap extract -i talk.mp4 --at-file stamps.txt --format png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "Path to the video file")
	f.StringVarP(&opts.Output, "output", "o", "", "Output zip (default screenshots_<video>.zip)")
	f.IntVar(&opts.Every, "every", 0, "Capture one screenshot every N seconds")
	f.StringVar(&opts.At, "at", "", "Comma separated m:ss timestamps")
	f.StringVar(&opts.AtFile, "at-file", "", "File with one m:ss timestamp per line")
	f.StringVar(&opts.Naming, "naming", "", "Entry naming: indexed, minute_second or dash")
	f.StringVar(&opts.Format, "format", entity.DefaultFormat, "Image format: jpg, png, bmp or tiff")
	f.IntVar(&opts.Quality, "quality", imaging.DefaultJPEGQuality, "JPEG quality (1-100)")
	f.StringVar(&opts.Decoder, "decoder", decoder.BackendAuto, "Decoder backend: auto, ffmpeg or mpeg")
	f.StringVar(&opts.FFmpeg, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	f.StringVar(&opts.FFprobe, "ffprobe", "ffprobe", "Path to the ffprobe binary")
	f.StringVar(&opts.LogLevel, "log-level", "warn", "Log level")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("every", "at", "at-file")

	return cmd
}

func runExtract(cmd *cobra.Command, opts extractOptions) error {
	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	log, err := logger.NewConsole(opts.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	videos, err := decoder.NewRouter(opts.Decoder, opts.FFmpeg, opts.FFprobe, log)
	if err != nil {
		return err
	}
	if err := videos.Check(opts.Input); err != nil {
		return err
	}

	svc := usecase.NewCaptureService(videos, imaging.Factory(opts.Quality), archive.NewZipCreator(), log)

	var progress *barProgress
	var onProgress usecase.ProgressFunc
	if !opts.Quiet {
		progress = &barProgress{out: cmd.ErrOrStderr()}
		onProgress = progress.update
	}

	result, err := svc.Capture(cmd.Context(), opts.Input, req, onProgress)
	if progress != nil {
		progress.finish()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSkipped(out, result.Skipped)

	if len(result.Screenshots) == 0 {
		return errors.New("no screenshots could be extracted from the video")
	}

	output := opts.Output
	if output == "" {
		output = defaultOutput(opts.Input)
	}
	if err := writeArchive(cmd, svc, result, output); err != nil {
		return err
	}

	fmt.Fprintln(out, summary(result, output))
	return nil
}

func summary(result *entity.ExtractionResult, output string) string {
	return fmt.Sprintf("wrote %d screenshots to %s (video length %.1fs, %d fps, %d frames)",
		len(result.Screenshots), output, result.Duration, result.FPS, result.TotalFrames)
}

// buildRequest turns flags into an extraction request. Timestamps from --at
// are comma separated; --at-file holds one per line.
func buildRequest(opts extractOptions) (entity.ExtractionRequest, error) {
	req := entity.ExtractionRequest{
		Naming: entity.NamingPolicy(opts.Naming),
		Format: opts.Format,
	}

	switch {
	case opts.Every > 0:
		req.Mode = entity.ModeInterval
		req.IntervalSeconds = opts.Every
	case opts.At != "":
		req.Mode = entity.ModeTimestamps
		req.Timestamps = entity.ParseTimestamps(strings.ReplaceAll(opts.At, ",", "\n"))
	case opts.AtFile != "":
		data, err := os.ReadFile(opts.AtFile)
		if err != nil {
			return req, fmt.Errorf("read timestamps: %w", err)
		}
		req.Mode = entity.ModeTimestamps
		req.Timestamps = entity.ParseTimestamps(string(data))
	default:
		return req, fmt.Errorf("%w: one of --every, --at or --at-file is required", entity.ErrInvalidRequest)
	}

	req = req.Normalize()
	return req, req.Validate()
}

func defaultOutput(input string) string {
	base := filepath.Base(input)
	return "screenshots_" + strings.TrimSuffix(base, filepath.Ext(base)) + ".zip"
}

func writeArchive(cmd *cobra.Command, svc *usecase.CaptureService, result *entity.ExtractionResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := svc.Archive(cmd.Context(), result.Screenshots, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func printSkipped(w io.Writer, skipped []entity.SkippedTimestamp) {
	for _, s := range skipped {
		fmt.Fprintf(w, "skipped %s (%s)\n", s.At, s.Reason)
	}
}

// barProgress creates the bar on the first update, once the total is known.
type barProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (p *barProgress) update(done, total int) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Capturing"),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *barProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
