package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/internal/ml"
	"github.com/floodguard/serving/pkg/logger"
)

// writeArtifact drops an artifact file into dir and returns its path.
func writeArtifact(t *testing.T, dir, name string, artifact map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

// fixedRiskArtifact yields a constant probability regardless of input: both
// estimators carry zero weights and a bias equal to logit(p).
func fixedRiskArtifact(bias float64) map[string]interface{} {
	estimator := map[string]interface{}{
		"weights": map[string]float64{"rainfall_mm": 0},
		"bias":    bias,
	}
	return map[string]interface{}{
		"family":  "risk_scorer",
		"version": "1.0.0",
		"risk_scorer": map[string]interface{}{
			"estimators": []interface{}{estimator, estimator},
		},
	}
}

// fixedNowcastArtifact yields base probability sigmoid(bias) for any input.
func fixedNowcastArtifact(bias float64, sequenceLength int) map[string]interface{} {
	return map[string]interface{}{
		"family":  "nowcaster",
		"version": "1.0.0",
		"nowcaster": map[string]interface{}{
			"sequence_length": sequenceLength,
			"feature_weights": map[string]float64{"rainfall_mm": 1},
			"recency_decay":   0.9,
			"bias":            bias,
			"scale":           0,
		},
	}
}

// fixedAnomalyArtifact scores offset for a reading that matches its
// baselines exactly.
func fixedAnomalyArtifact(offset, scoreMean, scoreStd float64) map[string]interface{} {
	return map[string]interface{}{
		"family":  "anomaly_detector",
		"version": "1.0.0",
		"anomaly_detector": map[string]interface{}{
			"baselines": map[string]interface{}{
				"water_level_cm": map[string]float64{"mean": 85, "std": 60},
				"rainfall_mm":    map[string]float64{"mean": 18.5, "std": 22},
				"temperature":    map[string]float64{"mean": 27.2, "std": 4.5},
				"humidity":       map[string]float64{"mean": 74, "std": 12},
			},
			"threshold":    0.0,
			"score_offset": offset,
			"score_scale":  0.19,
			"score_mean":   scoreMean,
			"score_std":    scoreStd,
		},
	}
}

// newTestRegistry loads the given artifacts into a fresh registry. Families
// without an artifact stay unloaded.
func newTestRegistry(t *testing.T, paths map[ml.Family]string) *ml.Registry {
	t.Helper()
	cfg := &config.ModelsConfig{
		RiskScorer:      config.ModelFamilyConfig{Name: "risk", Path: paths[ml.FamilyRiskScorer]},
		Nowcaster:       config.ModelFamilyConfig{Name: "nowcast", Path: paths[ml.FamilyNowcaster], SequenceLength: 7},
		AnomalyDetector: config.ModelFamilyConfig{Name: "anomaly", Path: paths[ml.FamilyAnomalyDetector]},
	}
	registry := ml.NewRegistry(cfg, logger.NewNoopLogger())
	for family, path := range paths {
		if path == "" {
			continue
		}
		_, err := registry.Reload(context.Background(), family)
		require.NoError(t, err)
	}
	return registry
}
