package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
)

type ZipCreator struct {
	now func() time.Time
}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{now: time.Now}
}

// WriteArchive writes one deflated entry per screenshot, in order, named by
// the screenshot's bare name.
func (z *ZipCreator) WriteArchive(ctx context.Context, shots []entity.Screenshot, w io.Writer) error {
	zipWriter := zip.NewWriter(w)

	for _, shot := range shots {
		select {
		case <-ctx.Done():
			zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addScreenshot(zipWriter, shot, z.now()); err != nil {
			zipWriter.Close()
			return fmt.Errorf("add %s to zip: %w", shot.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func addScreenshot(zw *zip.Writer, shot entity.Screenshot, modified time.Time) error {
	header := &zip.FileHeader{
		Name:     entryName(shot.Name),
		Method:   zip.Deflate,
		Modified: modified,
	}

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = writer.Write(shot.Data)
	return err
}

func entryName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}
