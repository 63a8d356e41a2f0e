package temporal

// FrameEnergy returns the mean squared amplitude of frame.
// An empty frame has no energy.
func FrameEnergy[T ~float32 | ~float64](frame []T) float64 {
	if len(frame) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, s := range frame {
		v := float64(s)
		sumSquares += v * v
	}

	return sumSquares / float64(len(frame))
}

// FrameEnergies computes FrameEnergy over consecutive non-overlapping frames of
// signal. A trailing partial frame is included.
func FrameEnergies(signal []float64, frameSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal) + frameSize - 1) / frameSize
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start := i * frameSize
		end := min(start+frameSize, len(signal))
		energies[i] = FrameEnergy(signal[start:end])
	}

	return energies
}
