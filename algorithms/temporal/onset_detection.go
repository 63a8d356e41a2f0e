package temporal

// OnsetParams configures the streaming onset detector
type OnsetParams struct {
	EnergyRatio       float64 // energy must exceed EnergyRatio * previous energy
	Warmup            int     // energies that must be observed before any onset
	RefractorySeconds float64 // minimum gap after the last accepted onset
	WindowSeconds     float64 // onsets older than this relative to the newest are dropped
}

// OnsetDetector accepts energy onsets in real time and keeps a trailing
// window of their timestamps.
type OnsetDetector struct {
	params     OnsetParams
	sampleRate float64
	lastOnset  float64
	onsets     []float64
}

// NewOnsetDetector creates an onset detector for audio at sampleRate
func NewOnsetDetector(params OnsetParams, sampleRate float64) *OnsetDetector {
	return &OnsetDetector{
		params:     params,
		sampleRate: sampleRate,
		onsets:     make([]float64, 0, 128),
	}
}

// IsOnset reports whether the energy/threshold pair qualifies as an onset,
// ignoring timing.
func (od *OnsetDetector) IsOnset(energy, previous, threshold float64, observed int) bool {
	return energy > threshold &&
		energy > previous*od.params.EnergyRatio &&
		observed >= od.params.Warmup
}

// Process evaluates one frame whose first sample is sampleIndex. observed is
// the number of energies seen so far, this frame included. On acceptance the
// onset time in seconds is returned with true.
func (od *OnsetDetector) Process(energy, previous, threshold float64, observed int, sampleIndex int64) (float64, bool) {
	if !od.IsOnset(energy, previous, threshold, observed) {
		return 0, false
	}

	t := float64(sampleIndex) / od.sampleRate
	if t-od.lastOnset <= od.params.RefractorySeconds {
		return 0, false
	}

	od.onsets = append(od.onsets, t)
	od.lastOnset = t
	od.evict(t)

	return t, true
}

// evict drops onsets more than WindowSeconds older than newest, in place
func (od *OnsetDetector) evict(newest float64) {
	drop := 0
	for drop < len(od.onsets) && newest-od.onsets[drop] > od.params.WindowSeconds {
		drop++
	}
	if drop == 0 {
		return
	}
	n := copy(od.onsets, od.onsets[drop:])
	od.onsets = od.onsets[:n]
}

// Onsets returns the onset window. The slice is owned by the detector and is
// only valid until the next Process or Reset.
func (od *OnsetDetector) Onsets() []float64 {
	return od.onsets
}

// Len returns the number of onsets in the window
func (od *OnsetDetector) Len() int {
	return len(od.onsets)
}

// LastOnset returns the time of the last accepted onset, 0 if none
func (od *OnsetDetector) LastOnset() float64 {
	return od.lastOnset
}

// SetSampleRate changes the rate used to timestamp onsets
func (od *OnsetDetector) SetSampleRate(sampleRate float64) {
	od.sampleRate = sampleRate
}

// Reset forgets every onset
func (od *OnsetDetector) Reset() {
	od.onsets = od.onsets[:0]
	od.lastOnset = 0
}
