package registration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Metric holds the similarity-metric parameters for the demons update.
// The update force at each point follows the classic sum-of-squared-
// differences demons formulation; SigmaDiff is the Gaussian smoothing
// applied to each update field, and Radius caps the per-iteration
// displacement step in pixels so a noisy gradient cannot throw a point
// across the image.
type Metric struct {
	SigmaDiff float64
	Radius    int
}

// NewSSDMetric creates a metric with the given update smoothing and
// step radius.
func NewSSDMetric(sigmaDiff float64, radius int) *Metric {
	return &Metric{SigmaDiff: sigmaDiff, Radius: radius}
}

// Registration is a symmetric diffeomorphic demons solver over a
// multiresolution Gaussian pyramid.
type Registration struct {
	metric     *Metric
	levelIters []int
	invIter    int
}

// New creates a solver. levelIters gives the iteration count per
// pyramid level, coarsest level first (the usual analysis setup is
// [200, 100, 50, 25]); invIter is the number of fixed-point iterations
// used to refine the backward (inverse) field.
func New(metric *Metric, levelIters []int, invIter int) (*Registration, error) {
	if metric == nil {
		return nil, fmt.Errorf("registration metric must not be nil")
	}
	if len(levelIters) == 0 {
		return nil, fmt.Errorf("at least one pyramid level is required")
	}
	for i, n := range levelIters {
		if n <= 0 {
			return nil, fmt.Errorf("level %d has non-positive iteration count %d", i, n)
		}
	}
	if invIter <= 0 {
		return nil, fmt.Errorf("inverse iteration count must be positive, got %d", invIter)
	}
	return &Registration{
		metric:     metric,
		levelIters: levelIters,
		invIter:    invIter,
	}, nil
}

// Optimize registers moving onto static and returns the resulting
// mapping. Both images must share the same shape. The forward field
// maps static-grid points into the moving image; the backward field is
// its approximate inverse.
//
// The solver descends a Gaussian pyramid: the displacement estimated at
// a coarse level is upsampled and refined at the next finer one. Both
// directions are optimized each iteration, which keeps the forward and
// backward fields near-inverse of each other before the final explicit
// inversion refinement.
func (r *Registration) Optimize(static, moving *mat.Dense) (*Mapping, error) {
	sr, sc := static.Dims()
	mr, mc := moving.Dims()
	if sr != mr || sc != mc {
		return nil, fmt.Errorf("image shapes differ: %dx%d vs %dx%d", sr, sc, mr, mc)
	}

	staticPyr := buildPyramid(static, len(r.levelIters))
	movingPyr := buildPyramid(moving, len(r.levelIters))
	levels := len(staticPyr)

	// levelIters is coarsest-first while the pyramid is finest-first;
	// when the pyramid was clamped short, the leading entries apply.
	rows, cols := staticPyr[levels-1].Dims()
	forward := NewField(rows, cols)
	backward := NewField(rows, cols)

	for level := levels - 1; level >= 0; level-- {
		s := staticPyr[level]
		m := movingPyr[level]
		iters := r.levelIters[levels-1-level]

		for it := 0; it < iters; it++ {
			r.step(forward, s, m)
			r.step(backward, m, s)
		}

		if level > 0 {
			nextRows, nextCols := staticPyr[level-1].Dims()
			forward = forward.upsample(nextRows, nextCols)
			backward = backward.upsample(nextRows, nextCols)
		}
	}

	// Tie the two directions together: refine the backward field toward
	// the exact inverse of the forward one, using the optimized backward
	// field as the starting guess.
	backward = forward.Invert(backward, r.invIter)

	return &Mapping{Forward: forward, Backward: backward}, nil
}

// step performs one demons iteration on the field mapping the static
// grid into the moving image.
func (r *Registration) step(field *Field, static, moving *mat.Dense) {
	warped := field.Warp(moving)
	gx, gy := gradient(warped)

	rows, cols := static.Dims()
	update := NewField(rows, cols)
	maxStep := float64(r.metric.Radius)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			delta := static.At(y, x) - warped.At(y, x)
			dx := gx.At(y, x)
			dy := gy.At(y, x)

			denom := dx*dx + dy*dy + delta*delta
			if denom < 1e-9 {
				continue
			}
			ux := delta * dx / denom
			uy := delta * dy / denom

			if maxStep > 0 {
				if norm := math.Hypot(ux, uy); norm > maxStep {
					scale := maxStep / norm
					ux *= scale
					uy *= scale
				}
			}
			update.DX.Set(y, x, ux)
			update.DY.Set(y, x, uy)
		}
	}

	smoothed := smoothField(update, r.metric.SigmaDiff)
	field.Compose(smoothed)
}

// SSD returns the sum of squared differences between two equally sized
// images. It is the similarity energy the demons update descends and is
// exposed for diagnostics and tests.
func SSD(a, b *mat.Dense) float64 {
	rows, cols := a.Dims()
	sum := 0.0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			d := a.At(y, x) - b.At(y, x)
			sum += d * d
		}
	}
	return sum
}
