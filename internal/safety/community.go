package safety

import (
	"context"
	"fmt"
	"math"

	"github.com/saferoute/saferoute/internal/reports"
	"github.com/saferoute/saferoute/pkg/polyline"
)

// Deductions per nearby report, by severity, from a ceiling of communityCeiling.
const (
	communityCeiling        = 9.0
	criticalReportDeduction = 1.5
	moderateReportDeduction = 0.8
	minorReportDeduction    = 0.3
	communityFallbackScore  = 7.0
)

// CommunityAnalyzer deducts from a ceiling for every recent report near the route.
type CommunityAnalyzer struct {
	cfg   Config
	store reports.Store
}

// NewCommunityAnalyzer creates a community-reports analyzer. store may be nil.
func NewCommunityAnalyzer(cfg Config, store reports.Store) *CommunityAnalyzer {
	return &CommunityAnalyzer{cfg: cfg.withDefaults(), store: store}
}

// Factor returns FactorCommunityReports.
func (a *CommunityAnalyzer) Factor() Factor { return FactorCommunityReports }

// Analyze counts reports from the configured window lying within the report radius
// of any route point.
func (a *CommunityAnalyzer) Analyze(ctx context.Context, in Input) FactorScore {
	if a.store == nil {
		return defaulted(FactorCommunityReports, communityFallbackScore, in.Slot, "Community reports unavailable")
	}

	since := a.cfg.Clock.Now().Add(-a.cfg.ReportWindow)
	recent, err := a.store.ReportsCreatedSince(ctx, since)
	if err != nil {
		a.cfg.Logger.Warn().Err(err).Msg("community report lookup failed, using default")
		return defaulted(FactorCommunityReports, communityFallbackScore, in.Slot, "Community reports unavailable")
	}

	var critical, moderate, minor int
	for _, r := range recent {
		if !r.Location.Valid() || !a.nearRoute(r.Location, in.Points) {
			continue
		}
		severity := r.Severity
		if severity == "" {
			severity = reports.SeverityFor(r.Category)
		}
		switch severity {
		case reports.SeverityCritical:
			critical++
		case reports.SeverityModerate:
			moderate++
		default:
			minor++
		}
	}

	nearby := critical + moderate + minor
	score := communityCeiling -
		criticalReportDeduction*float64(critical) -
		moderateReportDeduction*float64(moderate) -
		minorReportDeduction*float64(minor)
	score = math.Max(MinScore, score)

	explanation := fmt.Sprintf("No community reports in the last %d days", int(a.cfg.ReportWindow.Hours()/24))
	if nearby > 0 {
		explanation = fmt.Sprintf("%d recent reports near the route (%d critical, %d moderate, %d minor)",
			nearby, critical, moderate, minor)
	}

	return FactorScore{
		Factor:      FactorCommunityReports,
		Score:       round1(clamp(score)),
		Explanation: explanation,
		Evidence:    intPtr(nearby),
	}
}

// nearRoute reports whether p lies within the report radius of any route point.
func (a *CommunityAnalyzer) nearRoute(p polyline.Coordinate, points []polyline.Coordinate) bool {
	for _, rp := range points {
		if polyline.Haversine(p, rp) <= a.cfg.ReportRadiusMeters {
			return true
		}
	}
	return false
}
