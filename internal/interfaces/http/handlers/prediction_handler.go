package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/internal/domain/models"
	"github.com/floodguard/serving/pkg/logger"
)

// PredictionHandler exposes the prediction endpoints. It owns all wire
// parsing and range validation; the domain layer only ever sees checked
// values.
type PredictionHandler struct {
	service *appservice.PredictionService
	log     logger.Logger
}

// NewPredictionHandler creates the handler.
func NewPredictionHandler(service *appservice.PredictionService, log logger.Logger) *PredictionHandler {
	return &PredictionHandler{service: service, log: log.WithComponent("prediction_handler")}
}

type floodRiskRequest struct {
	Latitude       *float64   `json:"latitude" binding:"required"`
	Longitude      *float64   `json:"longitude" binding:"required"`
	LocationName   string     `json:"location_name"`
	RainfallMM     *float64   `json:"rainfall_mm" binding:"required"`
	Temperature    *float64   `json:"temperature" binding:"required"`
	Humidity       *float64   `json:"humidity" binding:"required"`
	Date           *time.Time `json:"date"`
	Rainfall7dAvg  float64    `json:"rainfall_7d_mean"`
	Rainfall30dAvg float64    `json:"rainfall_30d_mean"`
}

func (r *floodRiskRequest) validate() error {
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return fmt.Errorf("latitude must be in [-90, 90]")
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return fmt.Errorf("longitude must be in [-180, 180]")
	}
	if *r.RainfallMM < 0 {
		return fmt.Errorf("rainfall_mm must be non-negative")
	}
	if *r.Humidity < 0 || *r.Humidity > 100 {
		return fmt.Errorf("humidity must be in [0, 100]")
	}
	if r.Rainfall7dAvg < 0 || r.Rainfall30dAvg < 0 {
		return fmt.Errorf("rainfall means must be non-negative")
	}
	return nil
}

func (r *floodRiskRequest) toDomain() *models.FloodRiskRequest {
	return &models.FloodRiskRequest{
		Latitude:       *r.Latitude,
		Longitude:      *r.Longitude,
		LocationName:   r.LocationName,
		RainfallMM:     *r.RainfallMM,
		Temperature:    *r.Temperature,
		Humidity:       *r.Humidity,
		Date:           r.Date,
		Rainfall7dAvg:  r.Rainfall7dAvg,
		Rainfall30dAvg: r.Rainfall30dAvg,
	}
}

// PredictFloodRisk handles POST /api/v1/predict/flood-risk.
func (h *PredictionHandler) PredictFloodRisk(c *gin.Context) {
	var req floodRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.service.PredictFloodRisk(c.Request.Context(), req.toDomain())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type weatherSample struct {
	Timestamp   time.Time `json:"timestamp" binding:"required"`
	RainfallMM  float64   `json:"rainfall_mm"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

type nowcastRequest struct {
	Latitude     *float64        `json:"latitude" binding:"required"`
	Longitude    *float64        `json:"longitude" binding:"required"`
	LocationName string          `json:"location_name"`
	Sequence     []weatherSample `json:"weather_sequence" binding:"required"`
	Horizons     []int           `json:"forecast_horizons"`
}

func (r *nowcastRequest) validate() error {
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return fmt.Errorf("latitude must be in [-90, 90]")
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return fmt.Errorf("longitude must be in [-180, 180]")
	}
	for i, s := range r.Sequence {
		if s.RainfallMM < 0 {
			return fmt.Errorf("weather_sequence[%d].rainfall_mm must be non-negative", i)
		}
		if s.Humidity < 0 || s.Humidity > 100 {
			return fmt.Errorf("weather_sequence[%d].humidity must be in [0, 100]", i)
		}
	}
	for _, h := range r.Horizons {
		if h <= 0 {
			return fmt.Errorf("forecast_horizons must be positive")
		}
	}
	return nil
}

func (r *nowcastRequest) toDomain() *models.NowcastRequest {
	sequence := make([]models.WeatherSample, len(r.Sequence))
	for i, s := range r.Sequence {
		sequence[i] = models.WeatherSample{
			Timestamp:   s.Timestamp,
			RainfallMM:  s.RainfallMM,
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
		}
	}
	return &models.NowcastRequest{
		Latitude:     *r.Latitude,
		Longitude:    *r.Longitude,
		LocationName: r.LocationName,
		Sequence:     sequence,
		Horizons:     r.Horizons,
	}
}

// PredictNowcast handles POST /api/v1/predict/nowcast.
func (h *PredictionHandler) PredictNowcast(c *gin.Context) {
	var req nowcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.service.PredictNowcast(c.Request.Context(), req.toDomain())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type anomalyRequest struct {
	DeviceID       string    `json:"device_id" binding:"required"`
	LocationName   string    `json:"location_name"`
	WaterLevelCM   float64   `json:"water_level_cm"`
	RainfallMM     float64   `json:"rainfall_mm"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	BatteryVoltage float64   `json:"battery_voltage"`
	SignalDBM      float64   `json:"signal_dbm"`
	Timestamp      time.Time `json:"timestamp" binding:"required"`
}

// PredictAnomaly handles POST /api/v1/predict/anomaly. Out-of-range sensor
// values are deliberately allowed through: spotting them is what the
// classifier is for.
func (h *PredictionHandler) PredictAnomaly(c *gin.Context) {
	var req anomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.service.DetectAnomaly(c.Request.Context(), &models.SensorReading{
		DeviceID:       req.DeviceID,
		LocationName:   req.LocationName,
		WaterLevelCM:   req.WaterLevelCM,
		RainfallMM:     req.RainfallMM,
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		BatteryVoltage: req.BatteryVoltage,
		SignalDBM:      req.SignalDBM,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Locations []floodRiskRequest `json:"locations" binding:"required"`
}

// PredictBatch handles POST /api/v1/predict/batch.
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if len(req.Locations) == 0 {
		respondBadRequest(c, "locations must not be empty")
		return
	}
	if len(req.Locations) > models.MaxBatchSize {
		respondBadRequest(c, fmt.Sprintf("batch size exceeds maximum of %d", models.MaxBatchSize))
		return
	}

	domain := &models.BatchRequest{Locations: make([]models.FloodRiskRequest, len(req.Locations))}
	for i := range req.Locations {
		if err := req.Locations[i].validate(); err != nil {
			respondBadRequest(c, fmt.Sprintf("locations[%d]: %v", i, err))
			return
		}
		domain.Locations[i] = *req.Locations[i].toDomain()
	}

	result, err := h.service.PredictBatch(c.Request.Context(), domain)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type evacuationRequest struct {
	Latitude          *float64 `json:"latitude" binding:"required"`
	Longitude         *float64 `json:"longitude" binding:"required"`
	FloodProbability  *float64 `json:"flood_probability" binding:"required"`
	RiskLevel         string   `json:"risk_level" binding:"required"`
	LocationName      string   `json:"location_name"`
	PopulationDensity int      `json:"population_density"`
	IncludeShelters   *bool    `json:"include_shelters"`
	ZoneRadii         []int    `json:"zone_radii"`
}

func (r *evacuationRequest) validate() error {
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return fmt.Errorf("latitude must be in [-90, 90]")
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return fmt.Errorf("longitude must be in [-180, 180]")
	}
	if *r.FloodProbability < 0 || *r.FloodProbability > 1 {
		return fmt.Errorf("flood_probability must be in [0, 1]")
	}
	if !models.RiskCategory(r.RiskLevel).Valid() {
		return fmt.Errorf("unknown risk_level %q", r.RiskLevel)
	}
	if r.PopulationDensity < 0 {
		return fmt.Errorf("population_density must be non-negative")
	}
	for _, radius := range r.ZoneRadii {
		if radius <= 0 {
			return fmt.Errorf("zone_radii must be positive")
		}
	}
	return nil
}

// GenerateEvacuationZones handles POST /api/v1/predict/evacuation-zones.
func (h *PredictionHandler) GenerateEvacuationZones(c *gin.Context) {
	var req evacuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	includeShelters := true
	if req.IncludeShelters != nil {
		includeShelters = *req.IncludeShelters
	}

	result, err := h.service.GenerateEvacuationZones(c.Request.Context(), &models.EvacuationRequest{
		Latitude:          *req.Latitude,
		Longitude:         *req.Longitude,
		FloodProbability:  *req.FloodProbability,
		RiskCategory:      models.RiskCategory(req.RiskLevel),
		LocationName:      req.LocationName,
		PopulationDensity: req.PopulationDensity,
		IncludeShelters:   includeShelters,
		ZoneRadii:         req.ZoneRadii,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
