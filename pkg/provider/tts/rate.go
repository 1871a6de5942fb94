package tts

// Locale-specific natural speaking speeds in characters per second. Uzbek
// runs a little slower than the Latin-script average.
const (
	targetCPSUzbek   = 10.0
	targetCPSDefault = 11.0

	// Slot-rate bounds: small corrections happen at synthesis time, larger
	// overruns are deferred to the post-processing time-stretch.
	maxSpeedupPercent  = 15.0
	maxSlowdownPercent = -10.0
)

// SlotRate computes the slot-aware speaking-rate delta in percent for a
// line of textLen characters that must fit slotSeconds. Within ±10%/−15% of
// the natural speed the rate is left untouched so most segments sound
// unforced.
func SlotRate(textLen int, slotSeconds float64, language string) float64 {
	if textLen == 0 || slotSeconds <= 0 {
		return 0
	}

	target := targetCPSDefault
	if language == "uz" || language == "uzbek" {
		target = targetCPSUzbek
	}

	actual := float64(textLen) / slotSeconds
	ratio := actual / target

	switch {
	case ratio > 1.10:
		delta := (ratio - 1) * 100
		if delta > maxSpeedupPercent {
			delta = maxSpeedupPercent
		}
		return delta
	case ratio < 0.85:
		delta := (ratio - 1) * 100
		if delta < maxSlowdownPercent {
			delta = maxSlowdownPercent
		}
		return delta
	default:
		return 0
	}
}

// ClampRate bounds a merged rate delta (slot rate + direction rate +
// manual speaker trim) to the envelope every engine is known to handle
// without artefacts.
func ClampRate(percent float64) float64 {
	if percent < maxSlowdownPercent {
		return maxSlowdownPercent
	}
	if percent > maxSpeedupPercent {
		return maxSpeedupPercent
	}
	return percent
}

// ClampPitchHz bounds a speaker pitch offset to the provider's documented
// Hz envelope.
func ClampPitchHz(hz, bound float64) float64 {
	if hz < -bound {
		return -bound
	}
	if hz > bound {
		return bound
	}
	return hz
}
