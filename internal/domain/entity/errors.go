package entity

import "errors"

var (
	// ErrVideoOpen means the source could not be decoded at all.
	ErrVideoOpen = errors.New("video open failure")
	// ErrDecode is a single frame read failure. Extraction records it as a skip.
	ErrDecode = errors.New("decode failure")
	// ErrInvalidRequest covers empty or malformed timestamp lists and bad options.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCleanup wraps temp file removal failures. It is logged, never returned to callers.
	ErrCleanup = errors.New("resource cleanup failure")
	// ErrUnsupportedFormat is returned for video extensions no decoder accepts.
	ErrUnsupportedFormat = errors.New("unsupported video format")
)

var ErrJobNotFound = errors.New("job not found")
