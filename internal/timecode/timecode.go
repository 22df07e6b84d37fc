// Package timecode converts between HH:MM:SS:FF timecodes and frame or
// second positions, including 24fps to 23.976fps (24000/1001) retiming.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	FPS24    = 24.0
	FPS23976 = 24000.0 / 1001.0
)

// ToFrames converts an HH:MM:SS:FF timecode to an absolute frame index.
func ToFrames(tc string, fps float64) (int, error) {
	parts := strings.Split(tc, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("bad timecode %q: expected HH:MM:SS:FF", tc)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("bad timecode %q: %w", tc, err)
		}
		nums[i] = n
	}
	h, m, s, f := nums[0], nums[1], nums[2], nums[3]
	if float64(f) >= fps {
		return 0, fmt.Errorf("frame number %d exceeds frame rate %g", f, fps)
	}
	return int(float64(h*3600+m*60+s)*fps) + f, nil
}

// FromFrames converts an absolute frame index to an HH:MM:SS:FF timecode.
// The frame field uses a float modulo so fractional rates like 23.976 keep
// frame-accurate numbering instead of truncating to the nearest integer rate.
func FromFrames(frames int, fps float64) string {
	totalSeconds := float64(frames) / fps
	h := int(totalSeconds) / 3600
	m := (int(totalSeconds) % 3600) / 60
	s := int(totalSeconds) % 60
	f := int(math.Mod(float64(frames), fps))
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// FramesToSeconds converts a frame index to seconds on the given timeline.
func FramesToSeconds(frames int, fps float64) float64 {
	return float64(frames) / fps
}

// ToTimeSeconds treats a 24fps timecode as a time position, with FF as
// fractional seconds.
func ToTimeSeconds(tc string) (float64, error) {
	frames, err := ToFrames(tc, FPS24)
	if err != nil {
		return 0, err
	}
	return float64(frames) / FPS24, nil
}

// Convert24To23976 maps a 24fps timecode onto the 23.976fps timeline and
// returns the position in seconds. With preserveFrames the frame index is
// kept and replayed at the slower rate; otherwise the timecode is treated
// as a time value and scaled by the frame-rate ratio.
func Convert24To23976(tc string, preserveFrames bool) (float64, error) {
	if preserveFrames {
		frames, err := ToFrames(tc, FPS24)
		if err != nil {
			return 0, err
		}
		return FramesToSeconds(frames, FPS23976), nil
	}
	t, err := ToTimeSeconds(tc)
	if err != nil {
		return 0, err
	}
	return t * (FPS23976 / FPS24), nil
}
