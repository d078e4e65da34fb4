package pipeline

import (
	"math"
	"testing"
)

// TestUltrasoundTimes verifies frame timestamps land mid-frame with the
// first-frame offset applied
func TestUltrasoundTimes(t *testing.T) {
	times := UltrasoundTimes(3, 60, 0.1)

	want := []float64{
		0.1 + 0.5/60,
		0.1 + 1.0/60 + 0.5/60,
		0.1 + 2.0/60 + 0.5/60,
	}
	if len(times) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d", len(want), len(times))
	}
	for i := range want {
		if math.Abs(times[i]-want[i]) > 1e-12 {
			t.Errorf("Timestamp %d: expected %v, got %v", i, want[i], times[i])
		}
	}
}

// TestAudioTimes verifies sample times are spaced by the sample period
func TestAudioTimes(t *testing.T) {
	times := AudioTimes(4, 8000)

	if len(times) != 4 {
		t.Fatalf("Expected 4 timestamps, got %d", len(times))
	}
	if times[0] != 0 {
		t.Errorf("First sample time should be 0, got %v", times[0])
	}
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-1.0/8000) > 1e-12 {
			t.Errorf("Sample spacing at %d: got %v", i, times[i]-times[i-1])
		}
	}
}

// TestTimesEmpty verifies zero counts yield empty vectors
func TestTimesEmpty(t *testing.T) {
	if got := UltrasoundTimes(0, 60, 0.1); len(got) != 0 {
		t.Errorf("Expected empty vector, got %d entries", len(got))
	}
	if got := AudioTimes(0, 8000); len(got) != 0 {
		t.Errorf("Expected empty vector, got %d entries", len(got))
	}
}
