package indicator

import "github.com/swfung/dualcannon/internal/contracts"

// VWAP returns the volume-weighted average close of bars[0..uptoIdx],
// Σ(close·volume)/Σ(volume). Zero-volume bars contribute nothing. ok is
// false when no volume has traded in the range.
func VWAP(bars []contracts.Bar, uptoIdx int) (float64, bool) {
	if uptoIdx < 0 || uptoIdx >= len(bars) {
		return 0, false
	}

	var pv, vol float64
	for i := 0; i <= uptoIdx; i++ {
		if bars[i].Volume <= 0 {
			continue
		}
		pv += bars[i].Close * bars[i].Volume
		vol += bars[i].Volume
	}

	if vol <= 0 {
		return 0, false
	}
	return pv / vol, true
}
