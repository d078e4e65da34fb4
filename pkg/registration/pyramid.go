package registration

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minPyramidDim is the smallest image side allowed at the coarsest
// pyramid level. Requested levels that would shrink the image below
// this are dropped.
const minPyramidDim = 8

// gaussianKernel builds a normalized 1D Gaussian kernel truncated at
// three standard deviations.
func gaussianKernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// smooth convolves the image with a separable Gaussian of the given
// sigma, reflecting at the borders.
func smooth(img *mat.Dense, sigma float64) *mat.Dense {
	if sigma <= 0 {
		var out mat.Dense
		out.CloneFrom(img)
		return &out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	rows, cols := img.Dims()

	// Horizontal pass.
	tmp := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			acc := 0.0
			for k, w := range kernel {
				acc += w * img.At(y, reflect(x+k-radius, cols))
			}
			tmp.Set(y, x, acc)
		}
	}

	// Vertical pass.
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			acc := 0.0
			for k, w := range kernel {
				acc += w * tmp.At(reflect(y+k-radius, rows), x)
			}
			out.Set(y, x, acc)
		}
	}
	return out
}

// smoothField smooths both components of a displacement field.
func smoothField(f *Field, sigma float64) *Field {
	return &Field{
		DX: smooth(f.DX, sigma),
		DY: smooth(f.DY, sigma),
	}
}

// downsample halves the image in both axes after a light Gaussian
// prefilter.
func downsample(img *mat.Dense) *mat.Dense {
	blurred := smooth(img, 1.0)
	rows, cols := img.Dims()
	outRows := (rows + 1) / 2
	outCols := (cols + 1) / 2

	out := mat.NewDense(outRows, outCols, nil)
	for y := 0; y < outRows; y++ {
		for x := 0; x < outCols; x++ {
			out.Set(y, x, blurred.At(clamp(2*y, rows), clamp(2*x, cols)))
		}
	}
	return out
}

// buildPyramid returns the Gaussian pyramid of the image, finest level
// first, with at most maxLevels levels. Levels are dropped when either
// image side would fall below minPyramidDim.
func buildPyramid(img *mat.Dense, maxLevels int) []*mat.Dense {
	pyramid := []*mat.Dense{img}
	for len(pyramid) < maxLevels {
		last := pyramid[len(pyramid)-1]
		rows, cols := last.Dims()
		if rows/2 < minPyramidDim || cols/2 < minPyramidDim {
			break
		}
		pyramid = append(pyramid, downsample(last))
	}
	return pyramid
}

// gradient computes central-difference image gradients, one-sided at
// the borders.
func gradient(img *mat.Dense) (gx, gy *mat.Dense) {
	rows, cols := img.Dims()
	gx = mat.NewDense(rows, cols, nil)
	gy = mat.NewDense(rows, cols, nil)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			xp := clamp(x+1, cols)
			xm := clamp(x-1, cols)
			yp := clamp(y+1, rows)
			ym := clamp(y-1, rows)
			gx.Set(y, x, (img.At(y, xp)-img.At(y, xm))/float64(xp-xm))
			gy.Set(y, x, (img.At(yp, x)-img.At(ym, x))/float64(yp-ym))
		}
	}
	return gx, gy
}

// reflect mirrors an out-of-range index back into [0, n).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
