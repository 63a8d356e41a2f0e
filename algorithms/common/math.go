package common

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// WeightedMean calculates sum(w*x)/sum(w). Mismatched lengths or a zero
// total weight return 0.
func WeightedMean(data, weights []float64) float64 {
	if len(data) == 0 || len(data) != len(weights) {
		return 0.0
	}
	if floats.Sum(weights) == 0 {
		return 0.0
	}
	return stat.Mean(data, weights)
}

// LinearWeights fills dst with 1, 2, ..., len(dst)
func LinearWeights(dst []float64) []float64 {
	for i := range dst {
		dst[i] = float64(i + 1)
	}
	return dst
}

// RemoveMean returns a copy of data with its mean subtracted
func RemoveMean(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	copy(out, data)
	floats.AddConst(-Mean(data), out)
	return out
}

// IsPowerOfTwo checks if n is a power of two
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the next power of two >= n
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	if IsPowerOfTwo(n) {
		return n
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
