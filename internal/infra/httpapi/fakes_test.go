package httpapi

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"github.com/google/uuid"
)

type stubVideo struct {
	fps, frames, pos int
}

func (v *stubVideo) FPS() int        { return v.fps }
func (v *stubVideo) FrameCount() int { return v.frames }
func (v *stubVideo) Close() error    { return nil }

func (v *stubVideo) Seek(_ context.Context, index int) error {
	v.pos = index
	return nil
}

func (v *stubVideo) Read(context.Context) (image.Image, bool, error) {
	if v.pos >= v.frames {
		return nil, false, nil
	}
	v.pos++
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: uint8(v.pos), A: 255})
	return img, true, nil
}

// stubOpener checks the upload reached disk before handing out a video.
type stubOpener struct {
	fps, frames int
	err         error
	paths       []string
}

func (o *stubOpener) Open(_ context.Context, path string) (port.VideoHandle, error) {
	o.paths = append(o.paths, path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrVideoOpen, err)
	}
	if o.err != nil {
		return nil, o.err
	}
	return &stubVideo{fps: o.fps, frames: o.frames}, nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.Job
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[uuid.UUID]*entity.Job{}} }

func (m *memJobs) Create(_ context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) Update(ctx context.Context, job *entity.Job) error { return m.Create(ctx, job) }

func (m *memJobs) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

type memObjects struct {
	videos map[string][]byte
}

func (s *memObjects) UploadVideo(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.videos == nil {
		s.videos = map[string][]byte{}
	}
	s.videos[key] = data
	return nil
}

func (s *memObjects) DownloadVideo(context.Context, string, string) error {
	return errors.New("not used")
}

func (s *memObjects) UploadZip(context.Context, string, io.Reader, int64) error { return nil }

func (s *memObjects) PresignZip(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("http://minio.local/screenshots/%s?expires=%d", key, int(expiry.Seconds())), nil
}

type memQueue struct {
	bodies [][]byte
	err    error
}

func (q *memQueue) PublishJob(_ context.Context, body []byte) error {
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}
