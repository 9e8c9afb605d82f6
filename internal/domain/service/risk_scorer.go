package service

import (
	"context"
	"time"

	"github.com/floodguard/serving/internal/domain/models"
	"github.com/floodguard/serving/internal/ml"
	apperrors "github.com/floodguard/serving/pkg/errors"
)

// RiskScorer turns one weather observation into a flood risk prediction
// using the active ensemble model.
type RiskScorer struct {
	registry *ml.Registry
}

// NewRiskScorer creates the scorer.
func NewRiskScorer(registry *ml.Registry) *RiskScorer {
	return &RiskScorer{registry: registry}
}

// Score computes the risk prediction. The transport layer has already
// range-checked the request.
func (s *RiskScorer) Score(ctx context.Context, req *models.FloodRiskRequest) (*models.FloodRiskResult, error) {
	handle, err := s.registry.Active(ml.FamilyRiskScorer)
	if err != nil {
		return nil, err
	}
	model, ok := handle.Model.(*ml.RiskModel)
	if !ok {
		return nil, apperrors.ErrInternal("active risk handle holds wrong model type")
	}

	probability := model.PredictProbability(ml.RiskFeatures{
		"rainfall_mm":       req.RainfallMM,
		"temperature":       req.Temperature,
		"humidity":          req.Humidity,
		"rainfall_7d_mean":  req.Rainfall7dAvg,
		"rainfall_30d_mean": req.Rainfall30dAvg,
		"month":             float64(req.Month()),
	})
	probability = clamp01(probability)

	return &models.FloodRiskResult{
		Probability:         probability,
		RiskScore:           probability * 100,
		RiskCategory:        CategoryForProbability(probability),
		Confidence:          ConfidenceForProbability(probability),
		ContributingFactors: ContributingFactors(req),
		ModelVersion:        handle.Model.Version(),
		PredictedAt:         time.Now().UTC(),
	}, nil
}
