package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

// VideoFormats lists the container extensions accepted for upload.
var VideoFormats = []string{"mp4", "avi", "mov", "mkv", "wmv", "flv", "webm", "mpg", "mpeg"}

// VideoExt returns the lower-cased extension of name if it is an accepted video format.
func VideoExt(name string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, f := range VideoFormats {
		if f == ext {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}
