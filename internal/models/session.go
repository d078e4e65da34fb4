package models

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Session describes one ultrasound recording found in a data directory.
// It is built by the session discoverer and treated as read-only afterwards.
type Session struct {
	// FileBase is the common path prefix shared by all files of the
	// recording (prompt file path minus its extension)
	FileBase string

	// PromptFile is the path to the prompt text file the session was
	// discovered from
	PromptFile string

	// Prompt is the prompt string shown to the participant (first line
	// of the prompt file)
	Prompt string

	// Date is the recording timestamp parsed from the prompt file
	Date time.Time

	// Participant is the participant identifier from the prompt file
	Participant string

	// MetaFile, WavFile and UltFile are the expected companion file paths
	// derived from FileBase
	MetaFile string
	WavFile  string
	UltFile  string

	// MetaExists, WavExists and UltExists record whether each companion
	// file was present at discovery time
	MetaExists bool
	WavExists  bool
	UltExists  bool

	// Excluded is set when any companion file is missing. An excluded
	// session must not be fed to the processing pipeline.
	Excluded bool
}

// Metadata holds the numeric recording parameters parsed from the AAA
// <base>US.txt companion file.
type Metadata struct {
	// NumVectors is the number of scan lines per ultrasound frame
	NumVectors int

	// PixPerVector is the number of samples along each scan line
	PixPerVector int

	// PixelsPerMm is the sample density along a scan line
	PixelsPerMm float64

	// FramesPerSec is the ultrasound frame rate
	FramesPerSec float64

	// TimeInSecsOfFirstFrame is the offset of the first ultrasound frame
	// relative to the start of the audio recording
	TimeInSecsOfFirstFrame float64

	// Fields is the full key to value mapping from the metadata file,
	// including keys the pipeline does not consume
	Fields map[string]float64
}

// FrameVolume is a decoded ultrasound recording as a dense 3D array
// indexed (frame, vector, pixel along vector).
type FrameVolume struct {
	// Data is the sample data in row-major (frame, vector, pixel) order
	Data []float64

	// Frames, Vectors and Pixels are the volume dimensions
	Frames  int
	Vectors int
	Pixels  int
}

// Frame returns frame i as a Vectors x Pixels dense matrix. The matrix
// shares no storage with the volume, so callers may modify it freely.
func (v *FrameVolume) Frame(i int) *mat.Dense {
	stride := v.Vectors * v.Pixels
	frame := mat.NewDense(v.Vectors, v.Pixels, nil)
	copy(frame.RawMatrix().Data, v.Data[i*stride:(i+1)*stride])
	return frame
}
