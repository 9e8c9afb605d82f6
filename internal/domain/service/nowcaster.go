package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/floodguard/serving/internal/domain/models"
	"github.com/floodguard/serving/internal/ml"
	apperrors "github.com/floodguard/serving/pkg/errors"
)

// horizonDecayRate controls how fast forecast confidence decays per hour.
const horizonDecayRate = 0.05

// defaultHorizons are used when a request names none.
var defaultHorizons = []int{1, 3, 6, 12, 24}

// Nowcaster projects a base probability from a weather sequence onto a set
// of forecast horizons.
type Nowcaster struct {
	registry *ml.Registry
}

// NewNowcaster creates the projector.
func NewNowcaster(registry *ml.Registry) *Nowcaster {
	return &Nowcaster{registry: registry}
}

// Project computes per-horizon probabilities and confidences. Confidence
// decays exponentially with the horizon, so nearer forecasts are always
// more certain.
func (n *Nowcaster) Project(ctx context.Context, req *models.NowcastRequest) (*models.NowcastResult, error) {
	handle, err := n.registry.Active(ml.FamilyNowcaster)
	if err != nil {
		return nil, err
	}
	model, ok := handle.Model.(*ml.NowcastModel)
	if !ok {
		return nil, apperrors.ErrInternal("active nowcast handle holds wrong model type")
	}

	if len(req.Sequence) < model.SequenceLength() {
		return nil, apperrors.ErrInsufficientData(model.SequenceLength(), len(req.Sequence))
	}

	samples := make([]ml.SequenceSample, len(req.Sequence))
	for i, s := range req.Sequence {
		samples[i] = ml.SequenceSample{
			RainfallMM:  s.RainfallMM,
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
		}
	}
	base := clamp01(model.BaseProbability(samples))

	horizons := req.Horizons
	if len(horizons) == 0 {
		horizons = defaultHorizons
	}
	horizons = append([]int(nil), horizons...)
	sort.Ints(horizons)
	// One forecast per distinct horizon, even when the request repeats one.
	uniq := horizons[:1]
	for _, h := range horizons[1:] {
		if h != uniq[len(uniq)-1] {
			uniq = append(uniq, h)
		}
	}
	horizons = uniq

	forecasts := make([]models.HorizonForecast, 0, len(horizons))
	earlyWarning := false
	for _, h := range horizons {
		decay := math.Exp(-horizonDecayRate * float64(h))
		adjusted := clamp01(base * (1 + (1-decay)*0.1))
		if adjusted >= 0.6 {
			earlyWarning = true
		}
		forecasts = append(forecasts, models.HorizonForecast{
			HoursAhead:   h,
			Probability:  adjusted,
			Confidence:   decay,
			RiskCategory: CategoryForProbability(adjusted),
		})
	}

	return &models.NowcastResult{
		Forecasts:    forecasts,
		Trend:        trendOf(forecasts),
		EarlyWarning: earlyWarning,
		ModelVersion: handle.Model.Version(),
		PredictedAt:  time.Now().UTC(),
	}, nil
}

// trendOf compares the last and first horizon probabilities.
func trendOf(forecasts []models.HorizonForecast) string {
	if len(forecasts) < 2 {
		return "stable"
	}
	delta := forecasts[len(forecasts)-1].Probability - forecasts[0].Probability
	switch {
	case delta > 0.1:
		return "increasing"
	case delta < -0.1:
		return "decreasing"
	default:
		return "stable"
	}
}
