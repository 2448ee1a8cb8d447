package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const DefaultJPEGQuality = 90

// Encoder turns decoded frames into compressed image bytes.
type Encoder struct {
	format  string
	quality int
}

func NewEncoder(format string, jpegQuality int) (*Encoder, error) {
	switch format {
	case "jpg", "png", "bmp", "tiff":
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Encoder{format: format, quality: jpegQuality}, nil
}

// Factory returns an encoder constructor bound to jpegQuality.
func Factory(jpegQuality int) func(format string) (port.ImageEncoder, error) {
	return func(format string) (port.ImageEncoder, error) {
		enc, err := NewEncoder(format, jpegQuality)
		if err != nil {
			return nil, err
		}
		return enc, nil
	}
}

func (e *Encoder) Ext() string {
	return e.format
}

func (e *Encoder) Encode(w io.Writer, img image.Image) error {
	switch e.format {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: e.quality})
	}
}
