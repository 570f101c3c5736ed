package safety

import "context"

// HistoricalAnalyzer provides a coarse per-slot risk baseline until a crime-history
// feed is connected.
type HistoricalAnalyzer struct{}

// NewHistoricalAnalyzer creates a historical-risk analyzer.
func NewHistoricalAnalyzer() *HistoricalAnalyzer { return &HistoricalAnalyzer{} }

// Factor returns FactorHistoricalRisk.
func (a *HistoricalAnalyzer) Factor() Factor { return FactorHistoricalRisk }

// Analyze returns the slot baseline.
func (a *HistoricalAnalyzer) Analyze(_ context.Context, in Input) FactorScore {
	var baseline float64
	switch in.Slot {
	case 1:
		baseline = 7.0
	case 2:
		baseline = 6.5
	case 3:
		baseline = 6.0
	default:
		baseline = 6.5
	}

	return FactorScore{
		Factor:      FactorHistoricalRisk,
		Score:       baseline,
		Explanation: "Baseline estimate; no incident history for this area yet",
	}
}
