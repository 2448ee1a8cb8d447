package port

import (
	"context"
	"image"
	"io"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
)

type ImageEncoder interface {
	Encode(w io.Writer, img image.Image) error
	Ext() string
}

type Archiver interface {
	WriteArchive(ctx context.Context, shots []entity.Screenshot, w io.Writer) error
}
