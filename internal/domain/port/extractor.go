package port

import (
	"context"
	"image"
)

// VideoHandle is an opened video owned by a single extraction.
type VideoHandle interface {
	// FPS is the decoder's frame rate truncated to an integer.
	FPS() int
	FrameCount() int
	// Read returns the next frame in decode order; ok is false when none is available.
	Read(ctx context.Context) (frame image.Image, ok bool, err error)
	// Seek positions the next Read at frame index.
	Seek(ctx context.Context, index int) error
	Close() error
}

type VideoOpener interface {
	Open(ctx context.Context, path string) (VideoHandle, error)
}
