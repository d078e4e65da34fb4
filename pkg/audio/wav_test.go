package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV writes a mono 16-bit PCM file holding a sine tone
func writeTestWAV(t *testing.T, path string, sampleRate, samples int) {
	t.Helper()

	dataSize := samples * 2
	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i := 0; i < samples; i++ {
		v := int16(16000 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[44+2*i:], uint16(v))
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("Failed to write test WAV: %v", err)
	}
}

// TestReadWAV verifies sample rate and sample count survive decoding
func TestReadWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.wav")
	writeTestWAV(t, path, 8000, 800)

	rec, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("Failed to read WAV: %v", err)
	}

	if rec.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", rec.SampleRate)
	}
	if len(rec.Samples) != 800 {
		t.Errorf("Expected 800 samples, got %d", len(rec.Samples))
	}
	if math.Abs(rec.Duration()-0.1) > 1e-9 {
		t.Errorf("Expected 0.1s duration, got %v", rec.Duration())
	}

	// Decoded samples are normalized; the tone should stay within
	// [-1, 1] and actually move.
	maxAbs := 0.0
	for _, s := range rec.Samples {
		if a := math.Abs(s); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs > 1.0 {
		t.Errorf("Samples exceed normalized range: max %v", maxAbs)
	}
	if maxAbs < 0.1 {
		t.Errorf("Samples suspiciously quiet: max %v", maxAbs)
	}
}

// TestReadWAVMissing verifies a missing file is an error
func TestReadWAVMissing(t *testing.T) {
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestReadWAVGarbage verifies a non-WAV file is rejected
func TestReadWAVGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Error("Expected error for malformed file")
	}
}
