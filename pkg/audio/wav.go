// Package audio reads the companion audio recording of an ultrasound
// session.
package audio

import (
	"fmt"
	"os"

	"github.com/faiface/beep/wav"
)

// Recording holds a decoded mono waveform.
type Recording struct {
	// Samples is the waveform, one value per sample frame. For
	// multi-channel files the first channel is kept; the tongue
	// recordings are mono in practice.
	Samples []float64

	// SampleRate is the sampling frequency in Hz.
	SampleRate int
}

// Duration returns the length of the recording in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(len(r.Samples)) / float64(r.SampleRate)
}

// ReadWAV decodes a .wav file into a mono recording.
func ReadWAV(path string) (*Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	stream, format, err := wav.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file %s: %w", path, err)
	}
	defer stream.Close()

	samples := make([]float64, 0, stream.Len())
	buf := make([][2]float64, 512)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, buf[i][0])
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audio samples from %s: %w", path, err)
	}

	return &Recording{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
	}, nil
}
