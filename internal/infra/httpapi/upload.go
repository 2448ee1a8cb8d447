package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"go.uber.org/zap"
)

const multipartMemory = 32 << 20

var (
	errBadUpload      = errors.New("bad upload")
	errUploadTooLarge = errors.New("upload too large")
)

// upload is the video part of a multipart request.
type upload struct {
	file   multipart.File
	header *multipart.FileHeader
	ext    string
	form   *multipart.Form
}

func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*upload, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errUploadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errBadUpload, err)
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, fmt.Errorf("%w: a video file is required", errBadUpload)
	}

	ext, err := entity.VideoExt(header.Filename)
	if err != nil {
		file.Close()
		r.MultipartForm.RemoveAll()
		return nil, err
	}

	return &upload{file: file, header: header, ext: ext, form: r.MultipartForm}, nil
}

// stem is the upload's base name without extension.
func (u *upload) stem() string {
	base := filepath.Base(u.header.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// saveTemp copies the upload into dir so a decoder can open it by path.
func (u *upload) saveTemp(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "upload-*."+u.ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, u.file); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	return f.Name(), nil
}

func (u *upload) close(log *zap.Logger) {
	u.file.Close()
	if err := u.form.RemoveAll(); err != nil {
		log.Warn("multipart cleanup failed", zap.Error(fmt.Errorf("%w: %v", entity.ErrCleanup, err)))
	}
}

func removeTemp(path string, log *zap.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("temp cleanup failed", zap.Error(fmt.Errorf("%w: %v", entity.ErrCleanup, err)))
	}
}

// requestFromForm reads extraction options from form fields. Timestamps are
// one m:ss per line; unparsable lines are dropped.
func requestFromForm(r *http.Request) (entity.ExtractionRequest, error) {
	req := entity.ExtractionRequest{
		Mode:       entity.Mode(r.FormValue("mode")),
		Timestamps: entity.ParseTimestamps(r.FormValue("timestamps")),
		Naming:     entity.NamingPolicy(strings.TrimSpace(r.FormValue("naming"))),
		Format:     r.FormValue("format"),
	}
	if v := strings.TrimSpace(r.FormValue("interval")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: interval %q is not a whole number of seconds", entity.ErrInvalidRequest, v)
		}
		req.IntervalSeconds = n
	}
	req = req.Normalize()
	return req, req.Validate()
}

// writeUploadError maps upload and request validation errors to 4xx responses.
func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUploadTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "TOO_LARGE")
	case errors.Is(err, entity.ErrUnsupportedFormat):
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("%v; supported: %s", err, strings.Join(entity.VideoFormats, ", ")), "UNSUPPORTED_FORMAT")
	default:
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	}
}
