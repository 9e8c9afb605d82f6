package service

import (
	"context"
	"strings"
	"time"

	"github.com/floodguard/serving/internal/domain/models"
	"github.com/floodguard/serving/internal/ml"
	apperrors "github.com/floodguard/serving/pkg/errors"
)

// Hardware health thresholds. Crossing either forces a maintenance
// recommendation regardless of statistical severity.
const (
	minBatteryVoltage = 2.5
	minSignalDBM      = -95.0
)

// AnomalyClassifier converts raw outlier-model output into a severity and a
// maintenance recommendation.
type AnomalyClassifier struct {
	registry *ml.Registry
}

// NewAnomalyClassifier creates the classifier.
func NewAnomalyClassifier(registry *ml.Registry) *AnomalyClassifier {
	return &AnomalyClassifier{registry: registry}
}

// Classify scores one sensor reading. Severity bands come from the training
// score statistics of the handle active at call time, so a hot-reload takes
// effect on the very next classification.
func (c *AnomalyClassifier) Classify(ctx context.Context, reading *models.SensorReading) (*models.AnomalyResult, error) {
	handle, err := c.registry.Active(ml.FamilyAnomalyDetector)
	if err != nil {
		return nil, err
	}
	model, ok := handle.Model.(*ml.AnomalyModel)
	if !ok {
		return nil, apperrors.ErrInternal("active anomaly handle holds wrong model type")
	}

	detection := model.Detect(ml.AnomalyFeatures{
		"water_level_cm": reading.WaterLevelCM,
		"rainfall_mm":    reading.RainfallMM,
		"temperature":    reading.Temperature,
		"humidity":       reading.Humidity,
	})

	severity, confidence := severityFor(detection, model.TrainingStats())

	maintenance := severity == models.SeverityHigh || severity == models.SeverityMedium ||
		(reading.BatteryVoltage != 0 && reading.BatteryVoltage < minBatteryVoltage) ||
		(reading.SignalDBM != 0 && reading.SignalDBM < minSignalDBM)

	return &models.AnomalyResult{
		IsAnomaly:           detection.IsAnomaly,
		Score:               detection.Score,
		Severity:            severity,
		Confidence:          confidence,
		AnomalousFeatures:   detection.OutlierFeatures(3.0),
		Explanation:         explainReading(reading, detection.IsAnomaly),
		MaintenanceRequired: maintenance,
		Threshold:           model.Threshold(),
		ModelVersion:        handle.Model.Version(),
		DetectedAt:          time.Now().UTC(),
	}, nil
}

// severityFor bands an anomalous score by standard deviations below the
// training mean. Non-anomalous readings are normal at fixed 0.8 confidence.
func severityFor(d ml.Detection, stats ml.ScoreStats) (models.AnomalySeverity, float64) {
	if !d.IsAnomaly {
		return models.SeverityNormal, 0.8
	}
	switch {
	case d.Score < stats.Mean-2*stats.Std:
		return models.SeverityHigh, 0.9
	case d.Score < stats.Mean-stats.Std:
		return models.SeverityMedium, 0.7
	default:
		return models.SeverityLow, 0.5
	}
}

// explainReading names physically impossible values, falling back to a
// generic statistical explanation for model-detected outliers.
func explainReading(r *models.SensorReading, isAnomaly bool) string {
	var parts []string
	if r.WaterLevelCM < 0 || r.WaterLevelCM > 1000 {
		parts = append(parts, "Impossible water level reading")
	}
	if r.RainfallMM < 0 || r.RainfallMM > 500 {
		parts = append(parts, "Impossible rainfall reading")
	}
	if r.Temperature < -50 || r.Temperature > 60 {
		parts = append(parts, "Temperature out of normal range")
	}
	if r.Humidity < 0 || r.Humidity > 100 {
		parts = append(parts, "Humidity out of valid range")
	}
	if r.BatteryVoltage != 0 && r.BatteryVoltage < 2.0 {
		parts = append(parts, "Low battery voltage")
	}
	if r.SignalDBM != 0 && r.SignalDBM < -100 {
		parts = append(parts, "Weak signal strength")
	}

	if len(parts) == 0 {
		if isAnomaly {
			return "Statistical outlier detected"
		}
		return "All readings within normal range"
	}
	return strings.Join(parts, "; ")
}
