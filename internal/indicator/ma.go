package indicator

import "github.com/swfung/dualcannon/internal/contracts"

// SMA computes the simple moving average of values over a span window.
// Output is index-aligned; positions with fewer than span values carry
// the average of what is available.
func SMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span < 1 {
		span = 1
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		n := span
		if i+1 < span {
			n = i + 1
		} else if i >= span {
			sum -= values[i-span]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// EMA computes the exponential moving average with alpha 2/(span+1),
// seeded with the first value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MAClose returns the simple moving average of closes over the span
// bars ending at idx. ok is false when fewer than span bars precede
// idx.
func MAClose(bars []contracts.Bar, idx, span int) (float64, bool) {
	if idx < 0 || idx >= len(bars) || idx+1 < span || span < 1 {
		return 0, false
	}
	sum := 0.0
	for i := idx - span + 1; i <= idx; i++ {
		sum += bars[i].Close
	}
	return sum / float64(span), true
}

// MAVolume returns the simple moving average of volumes over the span
// bars ending at idx.
func MAVolume(bars []contracts.Bar, idx, span int) (float64, bool) {
	if idx < 0 || idx >= len(bars) || idx+1 < span || span < 1 {
		return 0, false
	}
	sum := 0.0
	for i := idx - span + 1; i <= idx; i++ {
		sum += bars[i].Volume
	}
	return sum / float64(span), true
}
