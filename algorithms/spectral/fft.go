package spectral

import (
	"math/cmplx"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal using mjibson/go-dsp
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// Autocorrelation returns the linear autocorrelation of x for lags
// 0..len(x)-1, normalized so lag 0 is 1. Computed as the inverse transform of
// the power spectrum of x zero-padded to avoid circular wrap. A zero-energy
// input returns all zeros.
func (f *FFT) Autocorrelation(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	padded := make([]float64, common.NextPowerOfTwo(2*n))
	copy(padded, x)

	spectrum := f.Compute(padded)
	for i, c := range spectrum {
		a := cmplx.Abs(c)
		spectrum[i] = complex(a*a, 0)
	}

	ac := f.ComputeInverseReal(spectrum)[:n]
	if ac[0] <= 0 {
		return make([]float64, n)
	}

	norm := ac[0]
	for i := range ac {
		ac[i] /= norm
	}
	return ac
}
