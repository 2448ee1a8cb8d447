package httpapi

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/infra/metrics"
	"github.com/fiapx/fiapx-screenshot-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// screenshotsHandler extracts synchronously and streams back the archive.
func screenshotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := cfg.Logger.With(zap.String("request_id", requestID(r)))

		up, err := readUpload(w, r, cfg.MaxUploadBytes)
		if err != nil {
			writeUploadError(w, err)
			return
		}
		defer up.close(log)

		req, err := requestFromForm(r)
		if err != nil {
			writeUploadError(w, err)
			return
		}

		videoPath, err := up.saveTemp(cfg.TempDir)
		if err != nil {
			log.Error("failed to store upload", zap.Error(err))
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}
		defer removeTemp(videoPath, log)

		result, err := cfg.Capture.Capture(r.Context(), videoPath, req, nil)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrInvalidRequest):
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			case errors.Is(err, entity.ErrVideoOpen):
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VIDEO_OPEN_FAILED")
			case errors.Is(err, context.Canceled):
				log.Info("client went away during extraction")
			default:
				log.Error("extraction failed", zap.Error(err))
				WriteError(w, http.StatusInternalServerError, "extraction failed", "INTERNAL_ERROR")
			}
			return
		}

		metrics.ScreenshotsExtractedTotal.Add(float64(len(result.Screenshots)))
		for _, s := range result.Skipped {
			metrics.TimestampsSkippedTotal.WithLabelValues(string(s.Reason)).Inc()
		}

		if len(result.Screenshots) == 0 {
			WriteJSON(w, http.StatusUnprocessableEntity, NoScreenshotsResponse{
				Error:    "no screenshots could be extracted from the video",
				Code:     "NO_SCREENSHOTS",
				Duration: result.Duration,
				Skipped:  SkippedToResponse(result.Skipped),
			})
			return
		}

		var buf bytes.Buffer
		if err := cfg.Capture.Archive(r.Context(), result.Screenshots, &buf); err != nil {
			log.Error("archive failed", zap.Error(err))
			WriteError(w, http.StatusInternalServerError, "failed to build archive", "INTERNAL_ERROR")
			return
		}

		h := w.Header()
		h.Set("Content-Type", "application/zip")
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": "screenshots_" + up.stem() + ".zip",
		}))
		h.Set("Content-Length", strconv.Itoa(buf.Len()))
		h.Set("X-Video-Duration", strconv.FormatFloat(result.Duration, 'f', 3, 64))
		h.Set("X-Screenshot-Count", strconv.Itoa(len(result.Screenshots)))
		h.Set("X-Skipped-Count", strconv.Itoa(len(result.Skipped)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Warn("write archive response", zap.Error(err))
		}

		log.Info("screenshots served",
			zap.String("video", up.header.Filename),
			zap.Int("captured", len(result.Screenshots)),
			zap.Int("skipped", len(result.Skipped)),
		)
	}
}

func createJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := cfg.Logger.With(zap.String("request_id", requestID(r)))

		up, err := readUpload(w, r, cfg.MaxUploadBytes)
		if err != nil {
			writeUploadError(w, err)
			return
		}
		defer up.close(log)

		req, err := requestFromForm(r)
		if err != nil {
			writeUploadError(w, err)
			return
		}

		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			userID = strings.TrimSpace(r.FormValue("user_id"))
		}

		job, err := cfg.Submit.Execute(r.Context(), usecase.SubmitJobInput{
			UserID:      userID,
			UserEmail:   strings.TrimSpace(r.FormValue("email")),
			Filename:    up.header.Filename,
			ContentType: up.header.Header.Get("Content-Type"),
			Video:       up.file,
			Size:        up.header.Size,
			Request:     req,
		})
		if err != nil {
			if errors.Is(err, entity.ErrInvalidRequest) || errors.Is(err, entity.ErrUnsupportedFormat) {
				writeUploadError(w, err)
				return
			}
			log.Error("job submission failed", zap.Error(err))
			WriteError(w, http.StatusServiceUnavailable, "job could not be queued", "SUBMIT_FAILED")
			return
		}

		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "job id must be a UUID", "BAD_REQUEST")
			return
		}

		job, err := cfg.Jobs.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, entity.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
				return
			}
			cfg.Logger.Error("find job", zap.String("job_id", id.String()), zap.Error(err))
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}

		resp := JobToResponse(job)
		if job.Status == entity.JobStatusCompleted && job.ZipKey != "" && cfg.Links != nil {
			link, err := cfg.Links.PresignZip(r.Context(), job.ZipKey, cfg.DownloadURLTTL)
			if err != nil {
				cfg.Logger.Warn("presign zip", zap.String("job_id", id.String()), zap.Error(err))
			} else {
				resp.DownloadURL = link
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
