package ultrasound

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"ultraflow/internal/models"
)

// Resampler interpolates decoded frames onto a denser grid sized so the
// resulting pixels are isometric. Native probe pixels are not square: the
// along-probe spacing is set by the vector count over a fixed probe
// length, while the along-vector spacing is set by the sample density.
// Image registration assumes square pixels, so each frame is bilinearly
// resampled onto a grid doubled in both axes with the depth axis scaled
// by the depth to length ratio.
//
// The target grid coordinates are computed once at construction and
// reused for every frame of the recording.
type Resampler struct {
	vectors int
	pixels  int

	// xs spans the vector axis, ys the pixel (depth) axis, both in the
	// source frame's 1-based coordinate convention.
	xs []float64
	ys []float64
}

// NewResampler builds a resampler for recordings with the given metadata
// geometry. probeLengthMm is the physical length of the transducer array;
// the classic AAA setup uses a 40 mm probe but the value varies per
// hardware, so it is a parameter rather than a constant.
func NewResampler(meta *models.Metadata, probeLengthMm float64) (*Resampler, error) {
	if probeLengthMm <= 0 {
		return nil, fmt.Errorf("invalid probe length %.2f mm", probeLengthMm)
	}
	if meta.NumVectors < 2 || meta.PixPerVector < 2 {
		return nil, fmt.Errorf("frame geometry %dx%d too small to resample", meta.NumVectors, meta.PixPerVector)
	}
	if meta.PixelsPerMm <= 0 {
		return nil, fmt.Errorf("invalid pixel density %.4f px/mm", meta.PixelsPerMm)
	}

	depthMm := float64(meta.PixPerVector) / meta.PixelsPerMm
	ratio := depthMm / probeLengthMm

	rows := int(math.Ceil(float64(meta.NumVectors)*ratio)) * 2
	cols := meta.NumVectors * 2

	r := &Resampler{
		vectors: meta.NumVectors,
		pixels:  meta.PixPerVector,
		xs:      make([]float64, cols),
		ys:      make([]float64, rows),
	}
	floats.Span(r.xs, 1, float64(meta.NumVectors))
	floats.Span(r.ys, 1, float64(meta.PixPerVector))

	return r, nil
}

// TargetShape returns the (rows, cols) shape of resampled frames.
func (r *Resampler) TargetShape() (rows, cols int) {
	return len(r.ys), len(r.xs)
}

// Resample interpolates one decoded frame (vectors x pixels) onto the
// isometric target grid. Rows of the result run along the depth axis and
// columns along the probe axis.
func (r *Resampler) Resample(frame *mat.Dense) (*mat.Dense, error) {
	rows, cols := frame.Dims()
	if rows != r.vectors || cols != r.pixels {
		return nil, fmt.Errorf("frame shape %dx%d does not match recording geometry %dx%d",
			rows, cols, r.vectors, r.pixels)
	}

	out := mat.NewDense(len(r.ys), len(r.xs), nil)
	for yi, y := range r.ys {
		for xi, x := range r.xs {
			out.Set(yi, xi, bilinear(frame, x, y))
		}
	}
	return out, nil
}

// ResampleVolume resamples every frame of a decoded volume, preserving
// frame order.
func (r *Resampler) ResampleVolume(vol *models.FrameVolume) ([]*mat.Dense, error) {
	resampled := make([]*mat.Dense, vol.Frames)
	for i := 0; i < vol.Frames; i++ {
		frame, err := r.Resample(vol.Frame(i))
		if err != nil {
			return nil, fmt.Errorf("failed to resample frame %d: %w", i, err)
		}
		resampled[i] = frame
	}
	return resampled, nil
}

// bilinear evaluates the frame at fractional position (vector x, pixel y)
// using bilinear interpolation. Coordinates are 1-based like the grid the
// resampler spans; values outside the frame are clamped to the border.
func bilinear(frame *mat.Dense, x, y float64) float64 {
	rows, cols := frame.Dims()

	fx := x - 1
	fy := y - 1
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := x0 + 1
	y1 := y0 + 1

	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x0 = clampIndex(x0, rows)
	x1 = clampIndex(x1, rows)
	y0 = clampIndex(y0, cols)
	y1 = clampIndex(y1, cols)

	v00 := frame.At(x0, y0)
	v01 := frame.At(x0, y1)
	v10 := frame.At(x1, y0)
	v11 := frame.At(x1, y1)

	top := v00*(1-ty) + v01*ty
	bottom := v10*(1-ty) + v11*ty
	return top*(1-tx) + bottom*tx
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
