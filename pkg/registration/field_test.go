package registration

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// rampImage builds an image whose value equals its column index
func rampImage(rows, cols int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Set(y, x, float64(x))
		}
	}
	return img
}

// TestWarpZeroField verifies the identity field leaves an image alone
func TestWarpZeroField(t *testing.T) {
	img := rampImage(8, 8)
	field := NewField(8, 8)

	warped := field.Warp(img)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if warped.At(y, x) != img.At(y, x) {
				t.Fatalf("Zero field changed pixel (%d, %d)", y, x)
			}
		}
	}
}

// TestWarpConstantShift verifies a uniform displacement samples the
// expected source pixels
func TestWarpConstantShift(t *testing.T) {
	img := rampImage(8, 8)
	field := NewField(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			field.DX.Set(y, x, 2)
		}
	}

	warped := field.Warp(img)
	for y := 0; y < 8; y++ {
		for x := 0; x < 5; x++ {
			want := float64(x + 2)
			if math.Abs(warped.At(y, x)-want) > 1e-9 {
				t.Fatalf("Pixel (%d, %d): expected %v, got %v", y, x, want, warped.At(y, x))
			}
		}
	}
}

// TestInvertConstantShift verifies the fixed-point inverse of a uniform
// shift is the opposite shift
func TestInvertConstantShift(t *testing.T) {
	field := NewField(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			field.DX.Set(y, x, 1.5)
			field.DY.Set(y, x, -0.5)
		}
	}

	inv := field.Invert(nil, 20)

	// Check away from the borders where clamping distorts the field.
	for y := 4; y < 12; y++ {
		for x := 4; x < 12; x++ {
			if math.Abs(inv.DX.At(y, x)+1.5) > 1e-6 {
				t.Fatalf("Inverse DX at (%d, %d): expected -1.5, got %v", y, x, inv.DX.At(y, x))
			}
			if math.Abs(inv.DY.At(y, x)-0.5) > 1e-6 {
				t.Fatalf("Inverse DY at (%d, %d): expected 0.5, got %v", y, x, inv.DY.At(y, x))
			}
		}
	}
}

// TestMagnitude verifies the per-point displacement norm
func TestMagnitude(t *testing.T) {
	field := NewField(2, 2)
	field.DX.Set(0, 0, 3)
	field.DY.Set(0, 0, 4)

	mag := field.Magnitude()
	if math.Abs(mag.At(0, 0)-5) > 1e-12 {
		t.Errorf("Expected magnitude 5, got %v", mag.At(0, 0))
	}
	if mag.At(1, 1) != 0 {
		t.Errorf("Expected zero magnitude, got %v", mag.At(1, 1))
	}
}

// TestUpsampleScalesVectors verifies upsampling doubles both the grid
// and the displacement vectors
func TestUpsampleScalesVectors(t *testing.T) {
	field := NewField(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			field.DX.Set(y, x, 1)
		}
	}

	up := field.upsample(8, 8)
	rows, cols := up.Dims()
	if rows != 8 || cols != 8 {
		t.Fatalf("Expected 8x8 field, got %dx%d", rows, cols)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if math.Abs(up.DX.At(y, x)-2) > 1e-9 {
				t.Fatalf("Expected doubled displacement 2 at (%d, %d), got %v", y, x, up.DX.At(y, x))
			}
		}
	}
}
