// Package models defines the request and result types exchanged between the
// transport layer and the domain services.
package models

import "time"

// RiskCategory is the discrete flood risk level.
type RiskCategory string

const (
	RiskVeryLow  RiskCategory = "very_low"
	RiskLow      RiskCategory = "low"
	RiskModerate RiskCategory = "moderate"
	RiskHigh     RiskCategory = "high"
	RiskExtreme  RiskCategory = "extreme"
)

// rank orders categories for comparisons; higher is riskier.
var riskRank = map[RiskCategory]int{
	RiskVeryLow:  0,
	RiskLow:      1,
	RiskModerate: 2,
	RiskHigh:     3,
	RiskExtreme:  4,
}

// Compare returns -1, 0, or 1 as c is below, equal to, or above other.
func (c RiskCategory) Compare(other RiskCategory) int {
	a, b := riskRank[c], riskRank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the category is one of the defined levels.
func (c RiskCategory) Valid() bool {
	_, ok := riskRank[c]
	return ok
}

// AnomalySeverity classifies how far an anomalous reading sits below the
// training-time score distribution.
type AnomalySeverity string

const (
	SeverityNormal AnomalySeverity = "normal"
	SeverityLow    AnomalySeverity = "low"
	SeverityMedium AnomalySeverity = "medium"
	SeverityHigh   AnomalySeverity = "high"
)

// FloodRiskRequest carries the weather conditions for a single-point risk
// prediction. The transport layer validates ranges before it reaches the
// domain.
type FloodRiskRequest struct {
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	LocationName   string     `json:"location_name,omitempty"`
	RainfallMM     float64    `json:"rainfall_mm"`
	Temperature    float64    `json:"temperature"`
	Humidity       float64    `json:"humidity"`
	Date           *time.Time `json:"date,omitempty"`
	Rainfall7dAvg  float64    `json:"rainfall_7d_mean,omitempty"`
	Rainfall30dAvg float64    `json:"rainfall_30d_mean,omitempty"`
}

// Month returns the request's month, defaulting to the current one.
func (r *FloodRiskRequest) Month() int {
	if r.Date != nil {
		return int(r.Date.Month())
	}
	return int(time.Now().Month())
}

// FloodRiskResult is the computed risk prediction.
type FloodRiskResult struct {
	Probability         float64      `json:"flood_probability"`
	RiskScore           float64      `json:"risk_score"`
	RiskCategory        RiskCategory `json:"risk_level"`
	Confidence          float64      `json:"confidence"`
	ContributingFactors []string     `json:"contributing_factors"`
	ModelVersion        string       `json:"model_version"`
	PredictedAt         time.Time    `json:"predicted_at"`
	Cached              bool         `json:"cached"`
}

// WeatherSample is one historical reading in a nowcast sequence.
type WeatherSample struct {
	Timestamp   time.Time `json:"timestamp"`
	RainfallMM  float64   `json:"rainfall_mm"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// NowcastRequest carries a weather sequence and the horizons to project.
type NowcastRequest struct {
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	LocationName string          `json:"location_name,omitempty"`
	Sequence     []WeatherSample `json:"weather_sequence"`
	Horizons     []int           `json:"forecast_horizons,omitempty"`
}

// HorizonForecast is the projection for one horizon.
type HorizonForecast struct {
	HoursAhead   int          `json:"hours_ahead"`
	Probability  float64      `json:"probability"`
	Confidence   float64      `json:"confidence"`
	RiskCategory RiskCategory `json:"risk_level"`
}

// NowcastResult is the full projection across all requested horizons,
// ordered ascending by horizon.
type NowcastResult struct {
	Forecasts    []HorizonForecast `json:"forecasts"`
	Trend        string            `json:"trend"`
	EarlyWarning bool              `json:"early_warning"`
	ModelVersion string            `json:"model_version"`
	PredictedAt  time.Time         `json:"predicted_at"`
	Cached       bool              `json:"cached"`
}

// SensorReading carries one sensor sample for anomaly classification.
type SensorReading struct {
	DeviceID       string    `json:"device_id"`
	LocationName   string    `json:"location_name,omitempty"`
	WaterLevelCM   float64   `json:"water_level_cm"`
	RainfallMM     float64   `json:"rainfall_mm"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	BatteryVoltage float64   `json:"battery_voltage,omitempty"`
	SignalDBM      float64   `json:"signal_dbm,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AnomalyResult is the classification of one reading.
type AnomalyResult struct {
	IsAnomaly           bool            `json:"is_anomaly"`
	Score               float64         `json:"anomaly_score"`
	Severity            AnomalySeverity `json:"severity"`
	Confidence          float64         `json:"confidence"`
	AnomalousFeatures   []string        `json:"anomalous_features"`
	Explanation         string          `json:"explanation"`
	MaintenanceRequired bool            `json:"maintenance_required"`
	Threshold           float64         `json:"threshold"`
	ModelVersion        string          `json:"model_version"`
	DetectedAt          time.Time       `json:"detected_at"`
	Cached              bool            `json:"cached"`
}

// BatchRequest bundles up to MaxBatchSize flood risk requests.
type BatchRequest struct {
	Locations []FloodRiskRequest `json:"locations"`
}

// MaxBatchSize bounds one batch request.
const MaxBatchSize = 100

// BatchItemResult holds one location's outcome; exactly one of Result and
// Error is set.
type BatchItemResult struct {
	Index  int              `json:"index"`
	Result *FloodRiskResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// BatchResult reports per-item outcomes plus totals.
type BatchResult struct {
	Results     []BatchItemResult `json:"results"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	PredictedAt time.Time         `json:"predicted_at"`
	Cached      bool              `json:"cached"`
}
