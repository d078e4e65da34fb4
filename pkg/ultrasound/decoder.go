// Package ultrasound decodes raw .ult frame dumps and resamples the
// decoded frames onto an isometric pixel grid.
package ultrasound

import (
	"errors"
	"fmt"
	"os"

	"ultraflow/internal/models"
)

// ErrTruncatedData reports a raw file whose size is not a whole number of
// frames for the recording geometry.
var ErrTruncatedData = errors.New("raw ultrasound data does not contain a whole number of frames")

// DecodeFile reads a raw .ult file and decodes it into a frame volume
// using the per-frame geometry from the session metadata.
func DecodeFile(path string, meta *models.Metadata) (*models.FrameVolume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw ultrasound file: %w", err)
	}
	return Decode(data, meta.NumVectors, meta.PixPerVector)
}

// Decode reshapes a raw buffer of unsigned 8-bit samples into a
// (frame, vector, pixel) volume. The sample values are widened to
// float64 unchanged. A buffer whose length is not a multiple of the
// frame size is rejected with ErrTruncatedData rather than silently
// dropping the trailing bytes.
func Decode(raw []byte, numVectors, pixPerVector int) (*models.FrameVolume, error) {
	if numVectors <= 0 || pixPerVector <= 0 {
		return nil, fmt.Errorf("invalid frame geometry: %d vectors x %d pixels", numVectors, pixPerVector)
	}

	frameSize := numVectors * pixPerVector
	frames := len(raw) / frameSize
	if rem := len(raw) % frameSize; rem != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d frames of %d bytes",
			ErrTruncatedData, rem, frames, frameSize)
	}
	if frames == 0 {
		return nil, fmt.Errorf("raw ultrasound data holds no complete frame (%d bytes, frame size %d)",
			len(raw), frameSize)
	}

	data := make([]float64, len(raw))
	for i, b := range raw {
		data[i] = float64(b)
	}

	return &models.FrameVolume{
		Data:    data,
		Frames:  frames,
		Vectors: numVectors,
		Pixels:  pixPerVector,
	}, nil
}
