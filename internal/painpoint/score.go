package painpoint

import (
	"math"
	"strings"
)

// Neutral defaults substituted before scoring when the analysis payload is
// missing a signal. Mid-scale keeps degraded clusters rankable without
// inflating them.
const (
	defaultEmotionalIntensity = 2.5
	defaultMarketSizeScore    = 2.5
)

// Scoring weights for the overall priority.
const (
	weightDemand      = 0.4
	weightMarket      = 0.3
	weightCompetition = 0.3
)

// placeholderSolutions are competitor entries that mean "we don't actually
// know one"; they are excluded from the competition count.
var placeholderSolutions = []string{
	"需要进一步调研", "待调研", "暂无", "未知",
	"needs research", "needs further research", "unknown", "n/a", "none", "tbd",
}

// CalculatePriority combines cluster share, emotional intensity, market-size
// estimate, and competitive landscape into a single bounded score. Pure and
// stateless: identical inputs always yield bit-identical output, and every
// field lands in [0,5] for arbitrary non-negative inputs.
func CalculatePriority(clusterSize, totalSize int, payload AnalysisPayload) PriorityScore {
	share := 0.0
	if totalSize > 0 && clusterSize > 0 {
		share = float64(clusterSize) / float64(totalSize)
	}

	demand := round1(clamp5(math.Min(5, share*10) + emotionalIntensity(payload)/5))
	market := round1(clamp5(marketSizeScore(share, totalSize, payload)))
	competition := round1(clamp5(competitionScore(payload)))
	overall := round1(clamp5(demand*weightDemand + market*weightMarket + competition*weightCompetition))

	return PriorityScore{
		DemandIntensity: demand,
		MarketSize:      market,
		Competition:     competition,
		Overall:         overall,
		Level:           priorityLevel(overall),
	}
}

func priorityLevel(overall float64) PriorityLevel {
	switch {
	case overall >= 3.5:
		return PriorityHigh
	case overall >= 2.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func emotionalIntensity(p AnalysisPayload) float64 {
	if p.PainDepth == nil {
		return defaultEmotionalIntensity
	}
	v := p.PainDepth.EmotionalIntensity
	if v < 0 || v > 5 || math.IsNaN(v) {
		return defaultEmotionalIntensity
	}
	return v
}

// marketSizeScore blends a data-derived component (how large a share of a
// meaningful sample this cluster holds) 40/60 with the externally-estimated
// market-size score.
func marketSizeScore(share float64, totalSize int, p AnalysisPayload) float64 {
	dataScore := 2.5
	if totalSize >= 50 {
		dataScore = 2.0 + math.Min(3.0, share*10)
		switch {
		case totalSize >= 200:
			dataScore += 0.5
		case totalSize >= 100:
			dataScore += 0.25
		}
	}

	estimated := defaultMarketSizeScore
	if p.MarketLandscape != nil {
		if v := p.MarketLandscape.MarketSizeScore; v >= 0 && v <= 5 && !math.IsNaN(v) {
			estimated = v
		}
	}
	return dataScore*0.4 + estimated*0.6
}

// competitionScore is inverse: fewer real competitors means a bluer ocean
// and a higher score.
func competitionScore(p AnalysisPayload) float64 {
	valid := 0
	if p.MarketLandscape != nil {
		for _, s := range p.MarketLandscape.ExistingSolutions {
			if isRealSolution(s) {
				valid++
			}
		}
	}
	switch {
	case valid == 0:
		return 5.0
	case valid == 1:
		return 4.0
	case valid == 2:
		return 3.0
	case valid == 3:
		return 2.0
	default:
		return 1.0
	}
}

func isRealSolution(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false
	}
	for _, ph := range placeholderSolutions {
		if s == ph || strings.Contains(s, ph) {
			return false
		}
	}
	return true
}

func clamp5(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
