package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns coefficient magnitudes of the mean-removed series,
// one per frequency from 0 to n/2.
func PowerSpectrum(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean := stat.Mean(values, nil)
	centred := make([]float64, len(values))
	for i, v := range values {
		centred[i] = v - mean
	}

	coeff := fourier.NewFFT(len(values)).Coefficients(nil, centred)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod is the period, in samples, of the strongest periodic
// component in values. Periodic tick-cost spikes usually come from GC or
// from the consumer's fsync cadence. It is 0 for short or flat input.
func DominantPeriod(values []float64) float64 {
	n := len(values)
	if n < 4 {
		return 0
	}
	ps := PowerSpectrum(values)

	best, bestPow := 0, 1e-9
	for i := 1; i < len(ps); i++ {
		if ps[i] > bestPow {
			best, bestPow = i, ps[i]
		}
	}
	if best == 0 {
		return 0
	}
	return float64(n) / float64(best)
}
