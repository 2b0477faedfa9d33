package scoring

import "github.com/reallygood83/counselingautomation/internal/model"

// Classify derives the crisis tier from a score set. Tiers are checked from most
// to least severe and boundaries are inclusive.
func Classify(s model.SelScoreSet) model.CrisisLevel {
	values := s.Values()
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	avg := TotalScore(s)

	switch {
	case lowest <= 2.0 || avg <= 2.5:
		return model.CrisisCritical
	case lowest <= 2.5 || avg <= 3.0:
		return model.CrisisWarning
	case lowest <= 3.0 || avg <= 3.5:
		return model.CrisisAttention
	default:
		return model.CrisisNormal
	}
}
