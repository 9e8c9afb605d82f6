package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appservice "github.com/floodguard/serving/internal/application/service"
	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/internal/infrastructure/persistence/redis"
	"github.com/floodguard/serving/internal/interfaces/http/handlers"
	"github.com/floodguard/serving/internal/interfaces/http/router"
	"github.com/floodguard/serving/internal/ml"
	"github.com/floodguard/serving/pkg/logger"
)

func writeHandlerArtifact(t *testing.T, dir, name string, artifact map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func testArtifacts(t *testing.T) map[ml.Family]string {
	t.Helper()
	dir := t.TempDir()
	estimator := map[string]interface{}{"weights": map[string]float64{"rainfall_mm": 0}, "bias": 0.5}
	return map[ml.Family]string{
		ml.FamilyRiskScorer: writeHandlerArtifact(t, dir, "risk.json", map[string]interface{}{
			"family": "risk_scorer", "version": "1.0.0",
			"risk_scorer": map[string]interface{}{"estimators": []interface{}{estimator, estimator}},
		}),
		ml.FamilyNowcaster: writeHandlerArtifact(t, dir, "nowcast.json", map[string]interface{}{
			"family": "nowcaster", "version": "1.0.0",
			"nowcaster": map[string]interface{}{
				"sequence_length": 7,
				"feature_weights": map[string]float64{"rainfall_mm": 1},
				"recency_decay":   0.9, "bias": 0, "scale": 0,
			},
		}),
		ml.FamilyAnomalyDetector: writeHandlerArtifact(t, dir, "anomaly.json", map[string]interface{}{
			"family": "anomaly_detector", "version": "1.0.0",
			"anomaly_detector": map[string]interface{}{
				"baselines": map[string]interface{}{
					"water_level_cm": map[string]float64{"mean": 85, "std": 60},
					"rainfall_mm":    map[string]float64{"mean": 18.5, "std": 22},
					"temperature":    map[string]float64{"mean": 27.2, "std": 4.5},
					"humidity":       map[string]float64{"mean": 74, "std": 12},
				},
				"threshold": 0.0, "score_offset": 0.42, "score_scale": 0.19,
				"score_mean": -0.2, "score_std": 0.15,
			},
		}),
	}
}

// newTestEngine builds the full routed engine backed by miniredis. When
// loadModels is false every family stays unloaded.
func newTestEngine(t *testing.T, loadModels bool) *gin.Engine {
	t.Helper()
	log := logger.NewNoopLogger()

	artifacts := testArtifacts(t)
	modelsCfg := &config.ModelsConfig{
		RiskScorer:      config.ModelFamilyConfig{Name: "risk", Path: artifacts[ml.FamilyRiskScorer]},
		Nowcaster:       config.ModelFamilyConfig{Name: "nowcast", Path: artifacts[ml.FamilyNowcaster], SequenceLength: 7},
		AnomalyDetector: config.ModelFamilyConfig{Name: "anomaly", Path: artifacts[ml.FamilyAnomalyDetector]},
	}
	registry := ml.NewRegistry(modelsCfg, log)
	if loadModels {
		summary := registry.ReloadAll(context.Background())
		require.Equal(t, summary.Total, summary.Succeeded)
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	conn := redis.NewConnectionFromClient(client, log)
	cache := redis.NewPredictionCache(conn, false, log)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Cache: config.CacheConfig{
			FloodRiskTTL: 300, NowcastTTL: 600, AnomalyTTL: 60,
			BatchTTL: 180, EvacuationTTL: 900,
		},
		Models: *modelsCfg,
	}

	service := appservice.NewPredictionService(
		cache, &cfg.Cache,
		monitoring.NewPerformanceMonitor(nil), nil,
		registry, log,
	)

	tracing, err := monitoring.NewTracingManager(&config.TracingConfig{ServiceName: "test"}, log)
	require.NoError(t, err)

	r := router.NewRouter(cfg, log, tracing,
		handlers.NewHealthHandler(service, conn, log),
		handlers.NewPredictionHandler(service, log),
		handlers.NewModelHandler(service, log),
		handlers.NewMetricsHandler(service, log),
	)
	r.SetupRoutes()
	return r.Engine()
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, engine *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func validFloodRiskBody() map[string]interface{} {
	return map[string]interface{}{
		"latitude": 6.5244, "longitude": 3.3792,
		"rainfall_mm": 85.0, "temperature": 28.0, "humidity": 80.0,
	}
}

func TestPredictFloodRiskEndpoint(t *testing.T) {
	engine := newTestEngine(t, true)

	rec := postJSON(t, engine, "/api/v1/predict/flood-risk", validFloodRiskBody())
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body, "flood_probability")
	assert.Contains(t, body, "risk_level")
	assert.Equal(t, "1.0.0", body["model_version"])
	assert.Equal(t, false, body["cached"])
}

func TestPredictFloodRiskRejectsOutOfRangeLatitude(t *testing.T) {
	engine := newTestEngine(t, true)

	body := validFloodRiskBody()
	body["latitude"] = 120.0
	rec := postJSON(t, engine, "/api/v1/predict/flood-risk", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestPredictFloodRiskRejectsMissingField(t *testing.T) {
	engine := newTestEngine(t, true)

	body := validFloodRiskBody()
	delete(body, "rainfall_mm")
	rec := postJSON(t, engine, "/api/v1/predict/flood-risk", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestPredictFloodRiskUnavailableModel(t *testing.T) {
	engine := newTestEngine(t, false)

	rec := postJSON(t, engine, "/api/v1/predict/flood-risk", validFloodRiskBody())
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "model_unavailable", decodeBody(t, rec)["error"])
}

func TestPredictBatchRejectsOversizedBatch(t *testing.T) {
	engine := newTestEngine(t, true)

	locations := make([]map[string]interface{}, 101)
	for i := range locations {
		locations[i] = validFloodRiskBody()
	}
	rec := postJSON(t, engine, "/api/v1/predict/batch", map[string]interface{}{
		"locations": locations,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Contains(t, body["message"], "100")
}

func TestPredictNowcastShortSequence(t *testing.T) {
	engine := newTestEngine(t, true)

	sequence := make([]map[string]interface{}, 5)
	for i := range sequence {
		sequence[i] = map[string]interface{}{
			"timestamp":   fmt.Sprintf("2025-08-0%dT00:00:00Z", i+1),
			"rainfall_mm": 10.0, "temperature": 27.0, "humidity": 70.0,
		}
	}
	rec := postJSON(t, engine, "/api/v1/predict/nowcast", map[string]interface{}{
		"latitude": 6.52, "longitude": 3.37,
		"weather_sequence": sequence,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_data", decodeBody(t, rec)["error"])
}

func TestPredictAnomalyAllowsImpossibleReadings(t *testing.T) {
	engine := newTestEngine(t, true)

	rec := postJSON(t, engine, "/api/v1/predict/anomaly", map[string]interface{}{
		"device_id": "SENSOR_001", "timestamp": "2025-08-15T14:30:00Z",
		"water_level_cm": 85.0, "rainfall_mm": 620.0,
		"temperature": 27.2, "humidity": 74.0,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "anomaly_score")
}

func TestEvacuationZonesRejectsUnknownRiskLevel(t *testing.T) {
	engine := newTestEngine(t, true)

	rec := postJSON(t, engine, "/api/v1/predict/evacuation-zones", map[string]interface{}{
		"latitude": 6.52, "longitude": 3.37,
		"flood_probability": 0.75, "risk_level": "catastrophic",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestModelStatusEndpoint(t *testing.T) {
	engine := newTestEngine(t, true)

	rec := get(t, engine, "/api/v1/models/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["all_loaded"])
}

func TestModelReloadUnknownFamily(t *testing.T) {
	engine := newTestEngine(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/models/gradient_booster/reload", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestHealthEndpoints(t *testing.T) {
	ready := newTestEngine(t, true)
	assert.Equal(t, http.StatusOK, get(t, ready, "/health/live").Code)
	assert.Equal(t, http.StatusOK, get(t, ready, "/health/ready").Code)

	notReady := newTestEngine(t, false)
	assert.Equal(t, http.StatusOK, get(t, notReady, "/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, notReady, "/health/ready").Code)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	engine := newTestEngine(t, true)
	assert.Equal(t, http.StatusNotFound, get(t, engine, "/api/v1/unknown").Code)
}
