package director

// deliveryBase is the starting prosody adjustment per delivery style.
var deliveryBase = map[Delivery]TTSParams{
	DeliveryNormal:    {},
	DeliveryWhisper:   {RateAdjust: -10, VolumeAdjust: -30, Breathiness: 0.8},
	DeliverySoft:      {RateAdjust: -5, VolumeAdjust: -15, Breathiness: 0.4},
	DeliveryLoud:      {RateAdjust: 5, VolumeAdjust: 20, Tension: 0.3},
	DeliveryShout:     {RateAdjust: 10, VolumeAdjust: 40, Tension: 0.7},
	DeliveryTrembling: {RateAdjust: -5, VolumeAdjust: -5, Tremolo: 0.7},
	DeliveryTense:     {RateAdjust: 3, VolumeAdjust: 5, Tension: 0.6},
}

// emotionAdjust is the per-emotion adjustment, scaled by intensity before
// it is added to the delivery base. Pitch is deliberately absent: speaker
// identity alone decides pitch so a character sounds like the same person
// whether calm or furious.
var emotionAdjust = map[Emotion]TTSParams{
	EmotionHappy:     {RateAdjust: 6, VolumeAdjust: 8},
	EmotionExcited:   {RateAdjust: 12, VolumeAdjust: 15},
	EmotionSad:       {RateAdjust: -10, VolumeAdjust: -12, Breathiness: 0.3},
	EmotionAngry:     {RateAdjust: 8, VolumeAdjust: 20, Tension: 0.5},
	EmotionFear:      {RateAdjust: 10, VolumeAdjust: -8, Tension: 0.3, Tremolo: 0.4},
	EmotionSurprise:  {RateAdjust: 8, VolumeAdjust: 10},
	EmotionDisgusted: {RateAdjust: -4, VolumeAdjust: 5},
	EmotionContempt:  {RateAdjust: -5, VolumeAdjust: 3},
	EmotionTender:    {RateAdjust: -8, VolumeAdjust: -10, Breathiness: 0.4},
	EmotionAnxious:   {RateAdjust: 6, Tension: 0.5},
}

// MapToTTSParams converts a Direction into engine-neutral prosody
// adjustments: per-delivery base values plus per-emotion adjustments scaled
// by intensity, with every field clamped to its documented range.
func MapToTTSParams(d Direction) TTSParams {
	p := deliveryBase[d.Delivery]

	if adj, ok := emotionAdjust[d.Emotion]; ok {
		p.RateAdjust += adj.RateAdjust * d.Intensity
		p.VolumeAdjust += adj.VolumeAdjust * d.Intensity
		p.Breathiness += adj.Breathiness * d.Intensity
		p.Tension += adj.Tension * d.Intensity
		p.Tremolo += adj.Tremolo * d.Intensity
	}

	for _, q := range d.VocalQuality {
		switch q {
		case QualityBreathy:
			p.Breathiness += 0.2
		case QualityTense, QualityStrained:
			p.Tension += 0.2
		case QualityTrembling:
			p.Tremolo += 0.2
		}
	}

	p.RateAdjust = clamp(p.RateAdjust, -20, 20)
	p.VolumeAdjust = clamp(p.VolumeAdjust, -50, 50)
	p.Breathiness = clamp(p.Breathiness, 0, 1)
	p.Tension = clamp(p.Tension, 0, 1)
	p.Tremolo = clamp(p.Tremolo, 0, 1)
	p.PitchAdjust = 0
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
