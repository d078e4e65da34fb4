package ultrasound

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ultraflow/internal/models"
)

// TestDecode verifies byte values survive the reshape in
// (frame, vector, pixel) order
func TestDecode(t *testing.T) {
	vectors := 3
	pixels := 4
	frames := 2

	raw := make([]byte, frames*vectors*pixels)
	for i := range raw {
		raw[i] = byte(i * 7 % 256)
	}

	vol, err := Decode(raw, vectors, pixels)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if vol.Frames != frames || vol.Vectors != vectors || vol.Pixels != pixels {
		t.Errorf("Expected shape (%d, %d, %d), got (%d, %d, %d)",
			frames, vectors, pixels, vol.Frames, vol.Vectors, vol.Pixels)
	}

	for f := 0; f < frames; f++ {
		frame := vol.Frame(f)
		for v := 0; v < vectors; v++ {
			for p := 0; p < pixels; p++ {
				idx := f*vectors*pixels + v*pixels + p
				want := float64(raw[idx])
				if got := frame.At(v, p); got != want {
					t.Errorf("Frame %d vector %d pixel %d: expected %v, got %v",
						f, v, p, want, got)
				}
			}
		}
	}
}

// TestDecodeTruncated verifies trailing partial-frame bytes are an
// error instead of being silently dropped
func TestDecodeTruncated(t *testing.T) {
	raw := make([]byte, 2*3*4+5)
	_, err := Decode(raw, 3, 4)
	if err == nil {
		t.Fatal("Expected error for truncated buffer")
	}
	if !errors.Is(err, ErrTruncatedData) {
		t.Errorf("Expected ErrTruncatedData, got %v", err)
	}
}

// TestDecodeEmpty verifies a buffer smaller than one frame is rejected
func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode(nil, 3, 4); err == nil {
		t.Error("Expected error for empty buffer")
	}
}

// TestDecodeBadGeometry verifies non-positive geometry is rejected
func TestDecodeBadGeometry(t *testing.T) {
	raw := make([]byte, 12)
	if _, err := Decode(raw, 0, 4); err == nil {
		t.Error("Expected error for zero vector count")
	}
	if _, err := Decode(raw, 3, -1); err == nil {
		t.Error("Expected error for negative pixel count")
	}
}

// TestDecodeFile verifies the file-reading path round-trips bytes
func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.ult")

	raw := make([]byte, 2*2*3)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("Failed to write raw file: %v", err)
	}

	meta := &models.Metadata{NumVectors: 2, PixPerVector: 3}
	vol, err := DecodeFile(path, meta)
	if err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if vol.Frames != 2 {
		t.Errorf("Expected 2 frames, got %d", vol.Frames)
	}
	if vol.Data[0] != 1 || vol.Data[len(vol.Data)-1] != 12 {
		t.Errorf("Decoded values do not match raw bytes")
	}
}
