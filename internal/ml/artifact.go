package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// artifactFile is the on-disk envelope written by the training pipeline.
// Exactly one parameter block must be present, matching the family label.
type artifactFile struct {
	Family     string            `json:"family"`
	Version    string            `json:"version"`
	RiskScorer *riskParams       `json:"risk_scorer,omitempty"`
	Nowcaster  *nowcastParams    `json:"nowcaster,omitempty"`
	Anomaly    *anomalyParams    `json:"anomaly_detector,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type riskParams struct {
	Estimators []linearEstimator `json:"estimators"`
}

type linearEstimator struct {
	Weights map[string]float64 `json:"weights"`
	Bias    float64            `json:"bias"`
}

type nowcastParams struct {
	SequenceLength int                `json:"sequence_length"`
	FeatureWeights map[string]float64 `json:"feature_weights"`
	RecencyDecay   float64            `json:"recency_decay"`
	Bias           float64            `json:"bias"`
	Scale          float64            `json:"scale"`
}

type featureBaseline struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

type anomalyParams struct {
	Baselines   map[string]featureBaseline `json:"baselines"`
	Threshold   float64                    `json:"threshold"`
	ScoreOffset float64                    `json:"score_offset"`
	ScoreScale  float64                    `json:"score_scale"`
	ScoreMean   float64                    `json:"score_mean"`
	ScoreStd    float64                    `json:"score_std"`
}

// Model is one loaded, immutable model instance.
type Model interface {
	Family() Family
	Version() string
}

// Load reads and fully validates the artifact at path for the given family.
// Any failure leaves no partial state behind; the returned model is ready
// for inference.
func Load(family Family, path string) (Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var file artifactFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}

	if Family(file.Family) != family {
		return nil, fmt.Errorf("artifact %s is for family %q, want %q", path, file.Family, family)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("artifact %s has no version", path)
	}

	switch family {
	case FamilyRiskScorer:
		if file.RiskScorer == nil {
			return nil, fmt.Errorf("artifact %s missing risk_scorer parameters", path)
		}
		return newRiskModel(file.Version, file.RiskScorer)
	case FamilyNowcaster:
		if file.Nowcaster == nil {
			return nil, fmt.Errorf("artifact %s missing nowcaster parameters", path)
		}
		return newNowcastModel(file.Version, file.Nowcaster)
	case FamilyAnomalyDetector:
		if file.Anomaly == nil {
			return nil, fmt.Errorf("artifact %s missing anomaly_detector parameters", path)
		}
		return newAnomalyModel(file.Version, file.Anomaly)
	}
	return nil, fmt.Errorf("unknown model family %q", family)
}
