package entity

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeTimestamps Mode = "timestamps"
	ModeInterval   Mode = "interval"
)

type NamingPolicy string

const (
	// NamingIndexed renders screenshot_0003_at_15s.jpg.
	NamingIndexed NamingPolicy = "indexed"
	// NamingMinuteSecond renders screenshot_2m_05s.jpg.
	NamingMinuteSecond NamingPolicy = "minute_second"
	// NamingDash renders 2-05.jpg.
	NamingDash NamingPolicy = "dash"
)

// Name builds the archive entry name for the index-th capture at t.
func (p NamingPolicy) Name(index int, t Timestamp, ext string) string {
	switch p {
	case NamingMinuteSecond:
		return fmt.Sprintf("screenshot_%dm_%02ds.%s", t.Minutes, t.Seconds, ext)
	case NamingDash:
		return fmt.Sprintf("%d-%02d.%s", t.Minutes, t.Seconds, ext)
	default:
		return fmt.Sprintf("screenshot_%04d_at_%ds.%s", index, t.TotalSeconds(), ext)
	}
}

func (p NamingPolicy) Valid() bool {
	switch p {
	case NamingIndexed, NamingMinuteSecond, NamingDash:
		return true
	}
	return false
}

type SkipReason string

const (
	SkipExceedsDuration SkipReason = "exceeds duration"
	SkipReadFailure     SkipReason = "read failure"
)

// Screenshot is one captured frame, already encoded.
type Screenshot struct {
	Name       string
	At         Timestamp
	FrameIndex int
	Data       []byte
}

type SkippedTimestamp struct {
	At     Timestamp
	Reason SkipReason
}

type ExtractionResult struct {
	Screenshots []Screenshot
	Skipped     []SkippedTimestamp
	Duration    float64
	FPS         int
	TotalFrames int
}

// Names lists screenshot names in result order.
func (r *ExtractionResult) Names() []string {
	names := make([]string, len(r.Screenshots))
	for i, s := range r.Screenshots {
		names[i] = s.Name
	}
	return names
}

const (
	DefaultFormat = "jpg"

	// MaxIntervalSeconds bounds interval mode to one capture per hour.
	MaxIntervalSeconds = 3600
)

// ExtractionRequest selects what to capture and how to name it.
type ExtractionRequest struct {
	Mode            Mode
	Timestamps      []Timestamp
	IntervalSeconds int
	Naming          NamingPolicy
	Format          string
}

// Normalize fills defaults: dash naming for timestamps, indexed naming for intervals, jpg output.
func (r ExtractionRequest) Normalize() ExtractionRequest {
	r.Mode = Mode(strings.ToLower(strings.TrimSpace(string(r.Mode))))
	if r.Mode == "" {
		if r.IntervalSeconds > 0 && len(r.Timestamps) == 0 {
			r.Mode = ModeInterval
		} else {
			r.Mode = ModeTimestamps
		}
	}
	if r.Naming == "" {
		if r.Mode == ModeInterval {
			r.Naming = NamingIndexed
		} else {
			r.Naming = NamingDash
		}
	}
	r.Format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(r.Format)), ".")
	switch r.Format {
	case "":
		r.Format = DefaultFormat
	case "jpeg":
		r.Format = "jpg"
	case "tif":
		r.Format = "tiff"
	}
	return r
}

// Validate reports requests that can never produce a screenshot as ErrInvalidRequest.
func (r ExtractionRequest) Validate() error {
	switch r.Mode {
	case ModeTimestamps:
		if len(r.Timestamps) == 0 {
			return fmt.Errorf("%w: no valid timestamps (expected one m:ss per line)", ErrInvalidRequest)
		}
	case ModeInterval:
		if r.IntervalSeconds < 1 || r.IntervalSeconds > MaxIntervalSeconds {
			return fmt.Errorf("%w: interval must be between 1 and %d seconds, got %d", ErrInvalidRequest, MaxIntervalSeconds, r.IntervalSeconds)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	if !r.Naming.Valid() {
		return fmt.Errorf("%w: unknown naming policy %q", ErrInvalidRequest, r.Naming)
	}
	return nil
}
