package temporal

// onsetTrain returns n onset times starting at start and spaced by interval
func onsetTrain(start, interval float64, n int) []float64 {
	onsets := make([]float64, n)
	for k := range n {
		onsets[k] = start + float64(k)*interval
	}
	return onsets
}

// onsetsFromIntervals accumulates intervals into onset times starting at 1 s
func onsetsFromIntervals(intervals ...float64) []float64 {
	onsets := []float64{1.0}
	t := 1.0
	for _, iv := range intervals {
		t += iv
		onsets = append(onsets, t)
	}
	return onsets
}

func approxEqual(a, b, tol float64) bool {
	d := a - b
	return d <= tol && d >= -tol
}
