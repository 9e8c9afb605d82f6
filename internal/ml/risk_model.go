package ml

import (
	"fmt"
	"math"
)

// RiskFeatures is the input vector for the flood risk ensemble. Keys match
// the feature names the training pipeline exported weights for.
type RiskFeatures map[string]float64

// RiskModel averages the calibrated probability estimates of two independent
// linear scorers through a logistic link.
type RiskModel struct {
	version    string
	estimators []linearEstimator
}

func newRiskModel(version string, params *riskParams) (*RiskModel, error) {
	if len(params.Estimators) != 2 {
		return nil, fmt.Errorf("risk artifact needs exactly 2 estimators, got %d", len(params.Estimators))
	}
	for i, est := range params.Estimators {
		if len(est.Weights) == 0 {
			return nil, fmt.Errorf("risk estimator %d has no weights", i)
		}
	}
	return &RiskModel{version: version, estimators: params.Estimators}, nil
}

func (m *RiskModel) Family() Family  { return FamilyRiskScorer }
func (m *RiskModel) Version() string { return m.version }

// PredictProbability returns the ensemble flood probability in [0,1].
// Features absent from an estimator's weight map contribute nothing.
func (m *RiskModel) PredictProbability(features RiskFeatures) float64 {
	var sum float64
	for _, est := range m.estimators {
		z := est.Bias
		for name, weight := range est.Weights {
			z += weight * features[name]
		}
		sum += sigmoid(z)
	}
	return sum / float64(len(m.estimators))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
