package pipeline

// UltrasoundTimes computes the capture time of each ultrasound frame
// relative to the start of the audio recording. Frames are spaced 1/fps
// apart, offset by the first-frame time plus half a frame period so
// each timestamp lands at the middle of its frame's capture interval.
func UltrasoundTimes(frames int, fps, firstFrameTime float64) []float64 {
	times := make([]float64, frames)
	for i := range times {
		times[i] = firstFrameTime + float64(i)/fps + 0.5/fps
	}
	return times
}

// AudioTimes computes the time of each audio sample from the sample
// rate, starting at zero.
func AudioTimes(samples, sampleRate int) []float64 {
	times := make([]float64, samples)
	for i := range times {
		times[i] = float64(i) / float64(sampleRate)
	}
	return times
}
