package ml

import (
	"fmt"
	"math"
	"sort"
)

// AnomalyFeatures is a sensor reading as named feature values.
type AnomalyFeatures map[string]float64

// Detection is the raw outlier-model output for one reading. Score is more
// negative the more anomalous the reading; Deviations holds the per-feature
// z-scores against the training baselines.
type Detection struct {
	IsAnomaly  bool
	Score      float64
	Deviations map[string]float64
}

// ScoreStats are the training-time anomaly score statistics. Severity bands
// are standard-deviation offsets below Mean, so they must always be read
// from the currently active model.
type ScoreStats struct {
	Mean float64
	Std  float64
}

// AnomalyModel scores readings by mean absolute deviation from per-feature
// training baselines.
type AnomalyModel struct {
	version string
	params  anomalyParams
}

func newAnomalyModel(version string, params *anomalyParams) (*AnomalyModel, error) {
	if len(params.Baselines) == 0 {
		return nil, fmt.Errorf("anomaly artifact has no feature baselines")
	}
	for name, b := range params.Baselines {
		if b.Std <= 0 {
			return nil, fmt.Errorf("anomaly baseline %q has non-positive std", name)
		}
	}
	if params.ScoreStd <= 0 {
		return nil, fmt.Errorf("anomaly artifact score_std must be positive")
	}
	if params.ScoreScale <= 0 {
		return nil, fmt.Errorf("anomaly artifact score_scale must be positive")
	}
	return &AnomalyModel{version: version, params: *params}, nil
}

func (m *AnomalyModel) Family() Family  { return FamilyAnomalyDetector }
func (m *AnomalyModel) Version() string { return m.version }

// Threshold returns the score below which a reading is anomalous.
func (m *AnomalyModel) Threshold() float64 { return m.params.Threshold }

// TrainingStats returns the training-time score distribution.
func (m *AnomalyModel) TrainingStats() ScoreStats {
	return ScoreStats{Mean: m.params.ScoreMean, Std: m.params.ScoreStd}
}

// Detect scores one reading. Only features with a trained baseline
// participate; unknown features are ignored.
func (m *AnomalyModel) Detect(features AnomalyFeatures) Detection {
	deviations := make(map[string]float64, len(m.params.Baselines))
	var total float64
	var n int
	for name, baseline := range m.params.Baselines {
		value, ok := features[name]
		if !ok {
			continue
		}
		z := (value - baseline.Mean) / baseline.Std
		deviations[name] = z
		total += math.Abs(z)
		n++
	}

	var meanAbsZ float64
	if n > 0 {
		meanAbsZ = total / float64(n)
	}
	score := m.params.ScoreOffset - m.params.ScoreScale*meanAbsZ

	return Detection{
		IsAnomaly:  score < m.params.Threshold,
		Score:      score,
		Deviations: deviations,
	}
}

// OutlierFeatures returns the names of features whose deviation exceeds
// limit standard deviations, sorted for deterministic output.
func (d Detection) OutlierFeatures(limit float64) []string {
	var names []string
	for name, z := range d.Deviations {
		if math.Abs(z) > limit {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
