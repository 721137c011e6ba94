package indicator

import "github.com/swfung/dualcannon/internal/contracts"

// KDJResult holds the three stochastic oscillator series, index-aligned
// with the input bars.
type KDJResult struct {
	K []float64
	D []float64
	J []float64
}

// KDJ computes the K, D and J series over bars with an n-bar RSV
// window. The smoothed lines are seeded at kInit and dInit
// (conventionally 50 each). When the window high equals the window low
// the RSV for that bar is 0. Output slices always have len(bars)
// entries; early bars use a truncated window.
func KDJ(bars []contracts.Bar, n int, kInit, dInit float64) KDJResult {
	res := KDJResult{
		K: make([]float64, len(bars)),
		D: make([]float64, len(bars)),
		J: make([]float64, len(bars)),
	}

	k, d := kInit, dInit
	for i := range bars {
		lo := i - n + 1
		if lo < 0 {
			lo = 0
		}

		high := bars[lo].High
		low := bars[lo].Low
		for j := lo + 1; j <= i; j++ {
			if bars[j].High > high {
				high = bars[j].High
			}
			if bars[j].Low < low {
				low = bars[j].Low
			}
		}

		rsv := 0.0
		if high > low {
			rsv = (bars[i].Close - low) / (high - low) * 100.0
		}

		k = (2.0*k + rsv) / 3.0
		d = (2.0*d + k) / 3.0

		res.K[i] = k
		res.D[i] = d
		res.J[i] = 3.0*k - 2.0*d
	}

	return res
}
