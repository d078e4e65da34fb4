// Package pipeline runs the per-session ultrasound optical-flow
// analysis: decode the raw frames, resample them to isometric pixels,
// register consecutive frame pairs and align the ultrasound and audio
// time axes.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"ultraflow/internal/models"
	"ultraflow/pkg/audio"
	"ultraflow/pkg/config"
	"ultraflow/pkg/registration"
	"ultraflow/pkg/session"
	"ultraflow/pkg/ultrasound"
)

// ErrSessionExcluded reports an attempt to process a session whose
// companion files were incomplete at discovery time.
var ErrSessionExcluded = errors.New("session is excluded from processing")

// Bundle is the terminal artifact of one session's processing.
type Bundle struct {
	// Flows holds one mapping per consecutive frame pair, in frame
	// order: Flows[i] registers frame i+1 onto frame i.
	Flows []*registration.Mapping

	// Frames is the decoded (unresampled) frame volume.
	Frames *models.FrameVolume

	// Resampled holds the isometric frames the registration ran on.
	Resampled []*mat.Dense

	// UltTime[i] is the capture time of frame i and WavTime[i] the time
	// of audio sample i, both relative to the recording start.
	UltTime []float64
	WavTime []float64
}

// Pipeline processes discovered sessions. The logger is an explicit
// collaborator; a nil logger silences progress output.
type Pipeline struct {
	cfg    *config.Config
	logger *log.Logger
}

// New creates a pipeline with the given configuration and logger.
func New(cfg *config.Config, logger *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Process runs the full analysis for one session and returns its output
// bundle. An excluded session is rejected up front with
// ErrSessionExcluded; exclusion is a precondition here, not an advisory
// flag.
func (p *Pipeline) Process(s *models.Session) (*Bundle, error) {
	if s.Excluded {
		return nil, fmt.Errorf("%w: %s", ErrSessionExcluded, s.FileBase)
	}

	p.logf("Processing %s %q", s.FileBase, s.Prompt)

	// Step 1: Read the companion audio recording.
	rec, err := audio.ReadWAV(s.WavFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	// Step 2: Read the recording metadata.
	meta, err := session.ReadMetadata(s.MetaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	// Step 3: Decode the raw frame dump.
	volume, err := ultrasound.DecodeFile(s.UltFile, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frames: %w", err)
	}
	p.logf("Decoded %d frames of %dx%d at %.1f fps",
		volume.Frames, volume.Vectors, volume.Pixels, meta.FramesPerSec)

	// Step 4: Resample every frame to isometric pixels.
	resampler, err := ultrasound.NewResampler(meta, p.cfg.Probe.LengthMm)
	if err != nil {
		return nil, fmt.Errorf("failed to build resampler: %w", err)
	}
	resampled, err := resampler.ResampleVolume(volume)
	if err != nil {
		return nil, err
	}
	rows, cols := resampler.TargetShape()
	p.logf("Resampled frames to %dx%d isometric grid", rows, cols)

	// Step 5: Register consecutive frame pairs.
	flows, err := p.registerPairs(resampled)
	if err != nil {
		return nil, err
	}

	// Step 6: Align the ultrasound and audio time axes.
	ultTime := UltrasoundTimes(volume.Frames, meta.FramesPerSec, meta.TimeInSecsOfFirstFrame)
	wavTime := AudioTimes(len(rec.Samples), rec.SampleRate)

	return &Bundle{
		Flows:     flows,
		Frames:    volume,
		Resampled: resampled,
		UltTime:   ultTime,
		WavTime:   wavTime,
	}, nil
}

// registerPairs runs the demons solver over every consecutive frame
// pair, honouring the configured pair limit. For pair i the solver is
// invoked with the next frame as the static image and the current frame
// as the moving one, so the forward field describes motion from frame i
// to frame i+1.
func (p *Pipeline) registerPairs(frames []*mat.Dense) ([]*registration.Mapping, error) {
	pairs := len(frames) - 1
	if pairs < 1 {
		return nil, fmt.Errorf("need at least 2 frames to estimate flow, got %d", len(frames))
	}
	if limit := p.cfg.Processing.MaxFramePairs; limit > 0 && pairs > limit {
		pairs = limit
	}

	metric := registration.NewSSDMetric(p.cfg.Registration.SigmaDiff, p.cfg.Registration.Radius)
	solver, err := registration.New(metric, p.cfg.Registration.LevelIters, p.cfg.Registration.InvIter)
	if err != nil {
		return nil, fmt.Errorf("failed to create registration solver: %w", err)
	}

	flows := make([]*registration.Mapping, 0, pairs)
	for i := 0; i < pairs; i++ {
		p.logf("Working on frame pair %d of %d", i+1, pairs)

		mapping, err := solver.Optimize(frames[i+1], frames[i])
		if err != nil {
			return nil, fmt.Errorf("failed to register frame pair %d: %w", i, err)
		}
		flows = append(flows, mapping)
	}

	p.logf("Finished computing optical flow (%d pairs)", len(flows))
	return flows, nil
}

// FlowStats summarizes a displacement field's magnitudes.
type FlowStats struct {
	Mean float64
	Max  float64
}

// Stats computes the mean and maximum forward displacement magnitude
// per frame pair of a bundle.
func (b *Bundle) Stats() []FlowStats {
	stats := make([]FlowStats, len(b.Flows))
	for i, m := range b.Flows {
		mag := m.Forward.Magnitude().RawMatrix().Data
		maxVal := 0.0
		for _, v := range mag {
			if v > maxVal {
				maxVal = v
			}
		}
		stats[i] = FlowStats{
			Mean: stat.Mean(mag, nil),
			Max:  maxVal,
		}
	}
	return stats
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
