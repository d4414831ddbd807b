package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// returned when a frame count has to be converted without a usable
	// positive frame rate
	ErrInvalidTimeBase = errors.New("invalid time base")

	// returned when a start/end field does not hold a number or is too
	// large to render as a clock
	ErrInvalidFrameCount = errors.New("invalid frame count")
)

// controls how the millisecond field of a timestamp is rendered
type MillisStyle int

const (
	// three digit milliseconds, "00:00:01,040"
	MillisPadded MillisStyle = iota
	// unpadded milliseconds, "00:00:01,40", as older exports produced them
	MillisLegacy
)

// Format converts a frame count at the given frames-per-second rate into an
// SRT timestamp. Milliseconds are truncated, never rounded.
func Format(frames, timeBase float64, style MillisStyle) (string, error) {
	if !validRate(timeBase) {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimeBase, timeBase)
	}
	if frames < 0 || math.IsNaN(frames) {
		frames = 0
	}

	total := frames / timeBase
	if !(total < math.MaxInt64) {
		return "", fmt.Errorf("%w: %v frames at %v is out of range", ErrInvalidFrameCount, frames, timeBase)
	}
	whole := math.Floor(total)
	millis := int64((total - whole) * 1000)
	seconds := int64(whole)

	clock := formatClock(seconds)
	if style == MillisLegacy {
		return fmt.Sprintf("%s,%d", clock, millis), nil
	}
	return fmt.Sprintf("%s,%03d", clock, millis), nil
}

// seconds as HH:MM:SS, hours are not capped at two digits
func formatClock(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// ParseTimeBase reads a <timebase> value.
func ParseTimeBase(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: no time base declared", ErrInvalidTimeBase)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !validRate(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeBase, raw)
	}
	return v, nil
}

// ParseFrames reads a <start>/<end> frame count.
func ParseFrames(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrameCount, raw)
	}
	return v, nil
}

// EffectiveRate applies the NTSC 1000/1001 pulldown to a nominal time base.
func EffectiveRate(timeBase float64, ntsc bool) float64 {
	if ntsc {
		return timeBase * 1000 / 1001
	}
	return timeBase
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
