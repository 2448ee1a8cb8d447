package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
)

// fakeVideo serves frames whose bounds encode their index, so encoded
// screenshots can be traced back to the frame they came from.
type fakeVideo struct {
	fps      int
	frames   int
	broken   map[int]bool
	pos      int
	seeks    []int
	closed   int
	onRead   func(pos int)
	closeErr error
	// hideCount makes FrameCount report 0 while frames are still served.
	hideCount bool
}

func (v *fakeVideo) FPS() int { return v.fps }

func (v *fakeVideo) FrameCount() int {
	if v.hideCount {
		return 0
	}
	return v.frames
}

func (v *fakeVideo) Seek(_ context.Context, index int) error {
	v.seeks = append(v.seeks, index)
	v.pos = index
	return nil
}

func (v *fakeVideo) Read(_ context.Context) (image.Image, bool, error) {
	if v.onRead != nil {
		v.onRead(v.pos)
	}
	if v.pos >= v.frames {
		return nil, false, nil
	}
	idx := v.pos
	v.pos++
	if v.broken[idx] {
		return nil, false, errors.New("corrupt packet")
	}
	return image.NewGray(image.Rect(idx, 0, idx+1, 1)), true, nil
}

func (v *fakeVideo) Close() error {
	v.closed++
	return v.closeErr
}

type fakeEncoder struct {
	ext string
}

func (e fakeEncoder) Ext() string {
	if e.ext == "" {
		return "jpg"
	}
	return e.ext
}

func (e fakeEncoder) Encode(w io.Writer, img image.Image) error {
	_, err := fmt.Fprintf(w, "frame-%d", img.Bounds().Min.X)
	return err
}

type fakeOpener struct {
	video  *fakeVideo
	err    error
	opened []string
}

func (o *fakeOpener) Open(_ context.Context, path string) (port.VideoHandle, error) {
	o.opened = append(o.opened, path)
	if o.err != nil {
		return nil, o.err
	}
	return o.video, nil
}

func fakeEncoders(format string) (port.ImageEncoder, error) {
	switch format {
	case "jpg", "png":
		return fakeEncoder{ext: format}, nil
	}
	return nil, fmt.Errorf("unsupported image format %q", format)
}
