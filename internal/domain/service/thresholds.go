// Package service implements the domain logic of the serving core: the risk
// scorer, horizon projector, anomaly classifier, and evacuation planner.
package service

import (
	"github.com/floodguard/serving/internal/domain/models"
)

// CategoryForProbability maps a flood probability to its discrete category.
// Single source for every component that labels a probability.
func CategoryForProbability(p float64) models.RiskCategory {
	switch {
	case p >= 0.8:
		return models.RiskExtreme
	case p >= 0.6:
		return models.RiskHigh
	case p >= 0.4:
		return models.RiskModerate
	case p >= 0.2:
		return models.RiskLow
	default:
		return models.RiskVeryLow
	}
}

// ConfidenceForProbability derives confidence from distance to the decision
// boundary: probabilities far from 0.5 are easier calls.
func ConfidenceForProbability(p float64) float64 {
	switch {
	case p < 0.3 || p > 0.7:
		return 0.9
	case p < 0.4 || p > 0.6:
		return 0.7
	default:
		return 0.5
	}
}

// monsoonMonths are the months treated as monsoon season.
var monsoonMonths = map[int]bool{6: true, 7: true, 8: true}

// ContributingFactors lists the rule-derived drivers of a risk prediction,
// falling back to "Normal conditions" when nothing fires.
func ContributingFactors(req *models.FloodRiskRequest) []string {
	var factors []string
	if req.RainfallMM > 50 {
		factors = append(factors, "Heavy rainfall")
	}
	if req.Humidity > 80 {
		factors = append(factors, "High humidity")
	}
	if req.Temperature < 10 {
		factors = append(factors, "Low temperature")
	}
	if monsoonMonths[req.Month()] {
		factors = append(factors, "Monsoon season")
	}
	if len(factors) == 0 {
		factors = append(factors, "Normal conditions")
	}
	return factors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
