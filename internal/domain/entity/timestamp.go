package entity

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const maxSeconds = 59

// MaxMinutes is the largest minute value whose total seconds fit an int.
const MaxMinutes = (math.MaxInt - maxSeconds) / 60

var timestampLine = regexp.MustCompile(`^(\d+):(\d+)$`)

// Timestamp is a requested capture position. Seconds is always in [0,59].
type Timestamp struct {
	Minutes int
	Seconds int
}

func NewTimestamp(minutes, seconds int) Timestamp {
	if seconds > maxSeconds {
		seconds = maxSeconds
	}
	if seconds < 0 {
		seconds = 0
	}
	return Timestamp{Minutes: minutes, Seconds: seconds}
}

// TimestampAt splits an absolute second offset into minutes and seconds.
func TimestampAt(totalSeconds int) Timestamp {
	return Timestamp{Minutes: totalSeconds / 60, Seconds: totalSeconds % 60}
}

// TotalSeconds saturates at math.MaxInt for minute values past MaxMinutes.
func (t Timestamp) TotalSeconds() int {
	if t.Minutes > MaxMinutes {
		return math.MaxInt
	}
	return t.Minutes*60 + t.Seconds
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d:%02d", t.Minutes, t.Seconds)
}

// ParseTimestamps reads one m:ss timestamp per line. Lines that do not match
// are dropped, as are minute values above MaxMinutes; seconds above 59 are
// clamped to 59.
func ParseTimestamps(text string) []Timestamp {
	var out []Timestamp
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := timestampLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		minutes, err := strconv.Atoi(m[1])
		if err != nil || minutes > MaxMinutes {
			continue
		}
		seconds, err := strconv.Atoi(m[2])
		if err != nil {
			// too many digits to fit an int is still "above 59"
			seconds = maxSeconds
		}
		out = append(out, NewTimestamp(minutes, seconds))
	}
	return out
}

// FormatTimestamps renders timestamps back to the line format ParseTimestamps reads.
func FormatTimestamps(ts []Timestamp) string {
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = t.String()
	}
	return strings.Join(lines, "\n")
}

// SortTimestamps returns a chronologically ordered copy. Equal timestamps keep input order.
func SortTimestamps(ts []Timestamp) []Timestamp {
	sorted := make([]Timestamp, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalSeconds() < sorted[j].TotalSeconds()
	})
	return sorted
}
