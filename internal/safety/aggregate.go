package safety

// Label is the qualitative verdict attached to an aggregate score.
type Label string

const (
	LabelSafe     Label = "SAFE"
	LabelModerate Label = "MODERATE"
	LabelCaution  Label = "CAUTION"
)

// Weights are the fixed contributions of each factor to the aggregate score.
var Weights = map[Factor]float64{
	FactorLighting:          0.25,
	FactorPedestrianDensity: 0.20,
	FactorSafeSpots:         0.20,
	FactorCommunityReports:  0.20,
	FactorHistoricalRisk:    0.15,
}

// Aggregate combines factor scores into an overall score in [MinScore, MaxScore]
// rounded to one decimal, and the matching label.
//
// Factors missing from scores are left out and the remaining weights are
// renormalised; with no known factor the result is MinScore. Duplicate factors
// count once, last one wins.
func Aggregate(scores []FactorScore) (float64, Label) {
	byFactor := make(map[Factor]float64, len(scores))
	for _, s := range scores {
		if _, ok := Weights[s.Factor]; !ok {
			continue
		}
		byFactor[s.Factor] = clamp(s.Score)
	}

	var sum, weight float64
	for _, f := range Factors {
		score, ok := byFactor[f]
		if !ok {
			continue
		}
		sum += Weights[f] * score
		weight += Weights[f]
	}
	if weight == 0 {
		return MinScore, LabelFor(MinScore)
	}

	overall := clamp(round1(sum / weight))
	return overall, LabelFor(overall)
}

// LabelFor maps a score to SAFE (>=8), MODERATE (>=6) or CAUTION.
func LabelFor(score float64) Label {
	switch {
	case score >= 8:
		return LabelSafe
	case score >= 6:
		return LabelModerate
	default:
		return LabelCaution
	}
}
