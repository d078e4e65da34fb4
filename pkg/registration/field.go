// Package registration estimates dense non-rigid alignment between
// consecutive ultrasound frames with a symmetric diffeomorphic
// demons-style algorithm. The solver runs over a multiresolution
// Gaussian pyramid and produces, per frame pair, a forward and a
// backward displacement field sampled on the frame grid.
package registration

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Field is a dense 2D displacement field. DX holds the column (x)
// displacement and DY the row (y) displacement at each grid point, in
// pixels of the grid the field is sampled on.
type Field struct {
	DX *mat.Dense
	DY *mat.Dense
}

// NewField allocates a zero displacement field of the given shape.
func NewField(rows, cols int) *Field {
	return &Field{
		DX: mat.NewDense(rows, cols, nil),
		DY: mat.NewDense(rows, cols, nil),
	}
}

// Dims returns the field's grid shape.
func (f *Field) Dims() (rows, cols int) {
	return f.DX.Dims()
}

// Magnitude returns the per-point Euclidean displacement magnitude.
func (f *Field) Magnitude() *mat.Dense {
	rows, cols := f.Dims()
	mag := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx := f.DX.At(y, x)
			dy := f.DY.At(y, x)
			mag.Set(y, x, math.Hypot(dx, dy))
		}
	}
	return mag
}

// Warp resamples img through the field: out(p) = img(p + f(p)), with
// bilinear interpolation and border clamping.
func (f *Field) Warp(img *mat.Dense) *mat.Dense {
	rows, cols := f.Dims()
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			sx := float64(x) + f.DX.At(y, x)
			sy := float64(y) + f.DY.At(y, x)
			out.Set(y, x, sampleBilinear(img, sx, sy))
		}
	}
	return out
}

// Compose applies the update field u on top of f in the additive demons
// sense: f(p) <- f(p) + u(p + f(p)). The update is sampled through the
// current field so repeated composition stays close to a true
// transformation composition.
func (f *Field) Compose(u *Field) {
	rows, cols := f.Dims()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			sx := float64(x) + f.DX.At(y, x)
			sy := float64(y) + f.DY.At(y, x)
			f.DX.Set(y, x, f.DX.At(y, x)+sampleBilinear(u.DX, sx, sy))
			f.DY.Set(y, x, f.DY.At(y, x)+sampleBilinear(u.DY, sx, sy))
		}
	}
}

// Invert approximates the inverse field with the usual fixed-point
// scheme inv(p) = -f(p + inv(p)), starting from guess (which may be
// nil) and running iters iterations.
func (f *Field) Invert(guess *Field, iters int) *Field {
	rows, cols := f.Dims()
	inv := NewField(rows, cols)
	if guess != nil {
		gr, gc := guess.Dims()
		if gr == rows && gc == cols {
			inv.DX.Copy(guess.DX)
			inv.DY.Copy(guess.DY)
		}
	}

	for it := 0; it < iters; it++ {
		next := NewField(rows, cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				sx := float64(x) + inv.DX.At(y, x)
				sy := float64(y) + inv.DY.At(y, x)
				next.DX.Set(y, x, -sampleBilinear(f.DX, sx, sy))
				next.DY.Set(y, x, -sampleBilinear(f.DY, sx, sy))
			}
		}
		inv = next
	}
	return inv
}

// upsample doubles the field onto a (rows, cols) grid, scaling the
// displacement vectors to the finer grid's pixel units.
func (f *Field) upsample(rows, cols int) *Field {
	srcRows, srcCols := f.Dims()
	out := NewField(rows, cols)

	// Map fine coordinates onto the coarse grid, preserving the corner
	// alignment used when the pyramid was built.
	scaleY := float64(srcRows-1) / math.Max(float64(rows-1), 1)
	scaleX := float64(srcCols-1) / math.Max(float64(cols-1), 1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			sy := float64(y) * scaleY
			sx := float64(x) * scaleX
			out.DX.Set(y, x, 2*sampleBilinear(f.DX, sx, sy))
			out.DY.Set(y, x, 2*sampleBilinear(f.DY, sx, sy))
		}
	}
	return out
}

// Mapping is the result of registering one frame pair: the forward
// field warps the moving image onto the static one, the backward field
// is its approximate inverse.
type Mapping struct {
	Forward  *Field
	Backward *Field
}

// Transform warps an image through the forward field.
func (m *Mapping) Transform(img *mat.Dense) *mat.Dense {
	return m.Forward.Warp(img)
}

// TransformInverse warps an image through the backward field.
func (m *Mapping) TransformInverse(img *mat.Dense) *mat.Dense {
	return m.Backward.Warp(img)
}

// sampleBilinear evaluates img at the fractional 0-based position
// (x, y) with bilinear interpolation, clamping to the border.
func sampleBilinear(img *mat.Dense, x, y float64) float64 {
	rows, cols := img.Dims()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	tx := x - float64(x0)
	ty := y - float64(y0)

	x1 := clamp(x0+1, cols)
	y1 := clamp(y0+1, rows)
	x0 = clamp(x0, cols)
	y0 = clamp(y0, rows)

	v00 := img.At(y0, x0)
	v01 := img.At(y0, x1)
	v10 := img.At(y1, x0)
	v11 := img.At(y1, x1)

	top := v00*(1-tx) + v01*tx
	bottom := v10*(1-tx) + v11*tx
	return top*(1-ty) + bottom*ty
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
