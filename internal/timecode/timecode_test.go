package timecode

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestToFrames(t *testing.T) {
	cases := []struct {
		tc   string
		fps  float64
		want int
	}{
		{"00:00:00:00", FPS24, 0},
		{"00:00:01:00", FPS24, 24},
		{"00:00:01:12", FPS24, 36},
		{"00:01:00:00", FPS24, 1440},
		{"01:00:00:00", FPS24, 86400},
	}
	for _, c := range cases {
		got, err := ToFrames(c.tc, c.fps)
		if err != nil {
			t.Fatalf("ToFrames(%q): %v", c.tc, err)
		}
		if got != c.want {
			t.Errorf("ToFrames(%q) = %d, want %d", c.tc, got, c.want)
		}
	}
}

func TestToFrames_Invalid(t *testing.T) {
	for _, tc := range []string{"00:00:00", "aa:bb:cc:dd", "00:00:00:99", ""} {
		if _, err := ToFrames(tc, FPS24); err == nil {
			t.Errorf("ToFrames(%q) should fail", tc)
		}
	}
}

func TestFromFrames_RoundTrip(t *testing.T) {
	for _, tc := range []string{"00:00:00:00", "00:00:05:10", "00:10:30:23", "02:15:42:07"} {
		frames, err := ToFrames(tc, FPS24)
		if err != nil {
			t.Fatalf("ToFrames(%q): %v", tc, err)
		}
		if got := FromFrames(frames, FPS24); got != tc {
			t.Errorf("round trip %q -> %d -> %q", tc, frames, got)
		}
	}
}

func TestFromFrames_FractionalRate(t *testing.T) {
	// Frame 24 at 23.976fps sits 0.024 frames past the one-second mark, so
	// it is frame 0 of second 1 — not frame 1, which integer truncation of
	// the rate would produce.
	if got := FromFrames(24, FPS23976); got != "00:00:01:00" {
		t.Errorf("FromFrames(24, 23.976) = %q, want 00:00:01:00", got)
	}
	if got := FromFrames(25, FPS23976); got != "00:00:01:01" {
		t.Errorf("FromFrames(25, 23.976) = %q, want 00:00:01:01", got)
	}
	if got := FromFrames(23, FPS23976); got != "00:00:00:23" {
		t.Errorf("FromFrames(23, 23.976) = %q, want 00:00:00:23", got)
	}
}

func TestConvert24To23976_PreserveFrames(t *testing.T) {
	// One hour of 24fps content replayed at 23.976 runs 0.1% longer.
	got, err := Convert24To23976("01:00:00:00", true)
	if err != nil {
		t.Fatal(err)
	}
	want := 86400.0 / FPS23976 // 3603.6 seconds
	if !almostEqual(got, want) {
		t.Errorf("got %g, want %g", got, want)
	}
}

func TestConvert24To23976_AsTimeValue(t *testing.T) {
	got, err := Convert24To23976("00:00:01:00", false)
	if err != nil {
		t.Fatal(err)
	}
	want := 1.0 * (FPS23976 / FPS24) // scaled down by 1000/1001
	if !almostEqual(got, want) {
		t.Errorf("got %g, want %g", got, want)
	}
}

func TestToTimeSeconds(t *testing.T) {
	got, err := ToTimeSeconds("00:00:02:12")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got, 2.5) {
		t.Errorf("got %g, want 2.5", got)
	}
}
