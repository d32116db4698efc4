package services

import "github.com/ml4ch/CoSESWeather/internal/models"

// Decimate keeps the first sample and then every sample at least step seconds after the
// last kept one. samples must be ascending by timestamp. Values are never synthesized.
func Decimate(samples []models.Sample, step int64) []models.Sample {
	if len(samples) == 0 {
		return []models.Sample{}
	}
	out := make([]models.Sample, 0, len(samples))
	out = append(out, samples[0])
	last := samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp >= last+step {
			out = append(out, s)
			last = s.Timestamp
		}
	}
	return out
}
