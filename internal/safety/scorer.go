package safety

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the full safety assessment of one route.
type Result struct {
	// Factors holds one score per factor in the order of Factors.
	Factors []FactorScore
	Overall float64
	Label   Label
}

// Defaulted reports whether any factor fell back to a default.
func (r Result) Defaulted() bool {
	for _, f := range r.Factors {
		if f.Defaulted {
			return true
		}
	}
	return false
}

// Factor returns the score for f.
func (r Result) Factor(f Factor) (FactorScore, bool) {
	for _, s := range r.Factors {
		if s.Factor == f {
			return s, true
		}
	}
	return FactorScore{}, false
}

// Scorer runs every analyzer against a route and aggregates the results.
type Scorer struct {
	cfg       Config
	analyzers []Analyzer
}

// NewScorer creates a scorer with the five standard analyzers.
func NewScorer(cfg Config, deps Dependencies) *Scorer {
	cfg = cfg.withDefaults()
	return NewScorerWithAnalyzers(cfg,
		NewLightingAnalyzer(cfg, deps.Inspector),
		NewDensityAnalyzer(cfg, deps.Places),
		NewSafeSpotAnalyzer(cfg, deps.Places),
		NewCommunityAnalyzer(cfg, deps.Reports),
		NewHistoricalAnalyzer(),
	)
}

// NewScorerWithAnalyzers creates a scorer over a custom analyzer set. Factors
// without an analyzer receive a defaulted neutral score.
func NewScorerWithAnalyzers(cfg Config, analyzers ...Analyzer) *Scorer {
	return &Scorer{cfg: cfg.withDefaults(), analyzers: analyzers}
}

// Score runs all analyzers concurrently and waits for every one of them.
func (s *Scorer) Score(ctx context.Context, in Input) Result {
	results := make(map[Factor]FactorScore, len(s.analyzers))
	out := make([]FactorScore, len(s.analyzers))

	var g errgroup.Group
	for i, a := range s.analyzers {
		g.Go(func() error {
			out[i] = s.run(ctx, a, in)
			return nil
		})
	}
	_ = g.Wait()

	for _, fs := range out {
		results[fs.Factor] = fs
	}

	factors := make([]FactorScore, 0, len(Factors))
	for _, f := range Factors {
		fs, ok := results[f]
		if !ok {
			fs = defaulted(f, 5, in.Slot, "No analyzer configured")
		}
		fs.Score = clamp(fs.Score)
		factors = append(factors, fs)
	}

	overall, label := Aggregate(factors)
	return Result{Factors: factors, Overall: overall, Label: label}
}

// run invokes one analyzer under the optional timeout and turns a panic into a
// defaulted score.
func (s *Scorer) run(ctx context.Context, a Analyzer, in Input) (fs FactorScore) {
	factor := a.Factor()
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Error().
				Str("factor", string(factor)).
				Str("panic", fmt.Sprint(r)).
				Msg("analyzer panicked, using default")
			fs = defaulted(factor, 5, in.Slot, "Analyzer failed")
		}
	}()

	if s.cfg.AnalyzerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AnalyzerTimeout)
		defer cancel()
	}

	fs = a.Analyze(ctx, in)
	fs.Factor = factor
	if fs.Defaulted {
		s.cfg.Logger.Warn().
			Str("factor", string(factor)).
			Int("slot", in.Slot).
			Msg("safety factor defaulted")
	}
	return fs
}
