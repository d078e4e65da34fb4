// Package visualization exports resampled ultrasound frames and
// displacement-field magnitudes as grayscale PNG images for visual
// inspection of the optical-flow results.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"ultraflow/pkg/registration"
)

// Exporter writes analysis images for one session into an output
// directory.
type Exporter struct {
	outputDir string
}

// NewExporter creates an exporter rooted at the given directory. The
// directory is created on first use.
func NewExporter(outputDir string) *Exporter {
	return &Exporter{outputDir: outputDir}
}

// SaveFrame writes one resampled ultrasound frame as a grayscale PNG.
// Raw sample values span 0..255 already, so they map directly onto gray
// levels.
func (e *Exporter) SaveFrame(frame *mat.Dense, index int) error {
	filename := filepath.Join(e.outputDir, fmt.Sprintf("frame_%04d.png", index))
	return e.saveGray(frame, 0, 255, filename)
}

// SaveFlowMagnitude writes the forward displacement magnitude of one
// frame-pair mapping as a grayscale PNG, normalized to the field's own
// maximum so small motions remain visible.
func (e *Exporter) SaveFlowMagnitude(m *registration.Mapping, index int) error {
	mag := m.Forward.Magnitude()
	maxVal := mat.Max(mag)
	if maxVal <= 0 {
		maxVal = 1
	}
	filename := filepath.Join(e.outputDir, fmt.Sprintf("flow_%04d.png", index))
	return e.saveGray(mag, 0, maxVal, filename)
}

// saveGray maps the matrix linearly from [lo, hi] onto 8-bit gray and
// writes it as a PNG.
func (e *Exporter) saveGray(data *mat.Dense, lo, hi float64, filename string) error {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	rows, cols := data.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	scale := 255 / (hi - lo)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := math.Max(0, math.Min(255, (data.At(y, x)-lo)*scale))
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	return png.Encode(file, img)
}
