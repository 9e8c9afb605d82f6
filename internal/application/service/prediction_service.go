// Package service orchestrates the serving flow: cache lookup, collapsed
// computation, telemetry, and cache write-back.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/internal/domain/models"
	domainservice "github.com/floodguard/serving/internal/domain/service"
	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/internal/infrastructure/persistence/redis"
	"github.com/floodguard/serving/internal/ml"
	apperrors "github.com/floodguard/serving/pkg/errors"
	"github.com/floodguard/serving/pkg/logger"
)

// Cache kind labels. Each kind namespaces its fingerprints and carries its
// own TTL.
const (
	KindFloodRisk  = "flood_risk"
	KindNowcast    = "nowcast"
	KindAnomaly    = "anomaly"
	KindBatch      = "batch"
	KindEvacuation = "evacuation"
)

// PredictionService is the application-level facade the transport layer
// calls. Every prediction goes cache → singleflight → domain service →
// telemetry → cache write-back.
type PredictionService struct {
	cache    redis.PredictionCache
	cacheCfg *config.CacheConfig
	monitor  *monitoring.PerformanceMonitor
	metrics  *monitoring.Metrics
	registry *ml.Registry

	scorer     *domainservice.RiskScorer
	nowcaster  *domainservice.Nowcaster
	classifier *domainservice.AnomalyClassifier
	planner    *domainservice.EvacuationPlanner

	group  singleflight.Group
	logger logger.Logger
}

// NewPredictionService wires the serving core together.
func NewPredictionService(
	cache redis.PredictionCache,
	cacheCfg *config.CacheConfig,
	monitor *monitoring.PerformanceMonitor,
	metrics *monitoring.Metrics,
	registry *ml.Registry,
	log logger.Logger,
) *PredictionService {
	return &PredictionService{
		cache:      cache,
		cacheCfg:   cacheCfg,
		monitor:    monitor,
		metrics:    metrics,
		registry:   registry,
		scorer:     domainservice.NewRiskScorer(registry),
		nowcaster:  domainservice.NewNowcaster(registry),
		classifier: domainservice.NewAnomalyClassifier(registry),
		planner:    domainservice.NewEvacuationPlanner(),
		logger:     log.WithComponent("prediction_service"),
	}
}

// serve runs the shared caching flow for one prediction kind. compute must
// return a JSON-marshalable result. The singleflight group carries the
// serialized form, so every waiter unmarshals into its own fresh copy and
// no result struct is ever shared between requests.
func (s *PredictionService) serve(
	ctx context.Context,
	kind string,
	payload interface{},
	fresh interface{},
	compute func(ctx context.Context) (interface{}, error),
) (interface{}, bool, error) {
	start := time.Now()

	if raw, ok := s.cache.Get(ctx, kind, payload); ok {
		if err := json.Unmarshal(raw, fresh); err == nil {
			s.observe(kind, time.Since(start), true, false)
			return fresh, true, nil
		}
		// Corrupt entry: fall through and recompute.
		s.logger.Warn(ctx, "discarding undecodable cache entry", logger.String("kind", kind))
	}

	sfKey, keyErr := redis.Fingerprint(kind, payload)
	if keyErr != nil {
		sfKey = fmt.Sprintf("%s:%p", kind, payload)
	}

	result, err, _ := s.group.Do(sfKey, func() (interface{}, error) {
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return nil, apperrors.ErrInternal("prediction result not serializable").WithCause(err)
		}
		s.cache.Set(ctx, kind, payload, raw, s.cacheCfg.TTLFor(kind))
		return raw, nil
	})
	if err != nil {
		s.observe(kind, time.Since(start), false, true)
		return nil, false, err
	}

	if err := json.Unmarshal(result.([]byte), fresh); err != nil {
		s.observe(kind, time.Since(start), false, true)
		return nil, false, apperrors.ErrInternal("prediction result not decodable").WithCause(err)
	}
	s.observe(kind, time.Since(start), false, false)
	return fresh, false, nil
}

func (s *PredictionService) observe(kind string, d time.Duration, cached, failed bool) {
	s.monitor.Record(kind, d, cached, failed)
	if s.metrics != nil {
		outcome := "miss"
		switch {
		case failed:
			outcome = "error"
		case cached:
			outcome = "hit"
		}
		s.metrics.ObserveCache(kind, outcome)
	}
}

// PredictFloodRisk serves one flood risk prediction.
func (s *PredictionService) PredictFloodRisk(ctx context.Context, req *models.FloodRiskRequest) (*models.FloodRiskResult, error) {
	result, cached, err := s.serve(ctx, KindFloodRisk, req, &models.FloodRiskResult{},
		func(ctx context.Context) (interface{}, error) {
			return s.scorer.Score(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	out := result.(*models.FloodRiskResult)
	out.Cached = cached
	return out, nil
}

// PredictNowcast serves one horizon projection.
func (s *PredictionService) PredictNowcast(ctx context.Context, req *models.NowcastRequest) (*models.NowcastResult, error) {
	result, cached, err := s.serve(ctx, KindNowcast, req, &models.NowcastResult{},
		func(ctx context.Context) (interface{}, error) {
			return s.nowcaster.Project(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	out := result.(*models.NowcastResult)
	out.Cached = cached
	return out, nil
}

// DetectAnomaly serves one sensor reading classification.
func (s *PredictionService) DetectAnomaly(ctx context.Context, reading *models.SensorReading) (*models.AnomalyResult, error) {
	result, cached, err := s.serve(ctx, KindAnomaly, reading, &models.AnomalyResult{},
		func(ctx context.Context) (interface{}, error) {
			return s.classifier.Classify(ctx, reading)
		})
	if err != nil {
		return nil, err
	}
	out := result.(*models.AnomalyResult)
	out.Cached = cached
	return out, nil
}

// PredictBatch serves up to MaxBatchSize risk predictions. A failing item
// reports its error in-line and never aborts the batch.
func (s *PredictionService) PredictBatch(ctx context.Context, req *models.BatchRequest) (*models.BatchResult, error) {
	result, cached, err := s.serve(ctx, KindBatch, req, &models.BatchResult{},
		func(ctx context.Context) (interface{}, error) {
			return s.computeBatch(ctx, req), nil
		})
	if err != nil {
		return nil, err
	}
	out := result.(*models.BatchResult)
	out.Cached = cached
	return out, nil
}

func (s *PredictionService) computeBatch(ctx context.Context, req *models.BatchRequest) *models.BatchResult {
	batch := &models.BatchResult{
		Total:       len(req.Locations),
		PredictedAt: time.Now().UTC(),
	}
	for i := range req.Locations {
		item := models.BatchItemResult{Index: i}
		result, err := s.scorer.Score(ctx, &req.Locations[i])
		if err != nil {
			item.Error = err.Error()
			batch.Failed++
		} else {
			item.Result = result
			batch.Succeeded++
		}
		batch.Results = append(batch.Results, item)
	}
	return batch
}

// GenerateEvacuationZones serves one evacuation plan.
func (s *PredictionService) GenerateEvacuationZones(ctx context.Context, req *models.EvacuationRequest) (*models.EvacuationPlan, error) {
	result, cached, err := s.serve(ctx, KindEvacuation, req, &models.EvacuationPlan{},
		func(ctx context.Context) (interface{}, error) {
			return s.planner.Generate(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	out := result.(*models.EvacuationPlan)
	out.Cached = cached
	return out, nil
}

// ModelStatus reports every family's active handle.
func (s *PredictionService) ModelStatus() map[ml.Family]ml.FamilyStatus {
	return s.registry.Status()
}

// ReloadModel hot-reloads one family.
func (s *PredictionService) ReloadModel(ctx context.Context, family ml.Family) (*ml.Handle, error) {
	handle, err := s.registry.Reload(ctx, family)
	if s.metrics != nil {
		var generation uint64
		if handle != nil {
			generation = handle.Generation
		}
		s.metrics.ObserveReload(string(family), generation, err)
	}
	return handle, err
}

// ReloadAllModels hot-reloads every family and reports partial success.
func (s *PredictionService) ReloadAllModels(ctx context.Context) *ml.ReloadSummary {
	summary := s.registry.ReloadAll(ctx)
	if s.metrics != nil {
		for _, status := range summary.Statuses {
			if status.Success {
				s.metrics.ObserveReload(string(status.Family), status.Handle.Generation, nil)
			} else {
				s.metrics.ObserveReload(string(status.Family), 0, fmt.Errorf("%s", status.Error))
			}
		}
	}
	return summary
}

// familyKinds maps a model family to the cache kinds its predictions use.
var familyKinds = map[ml.Family][]string{
	ml.FamilyRiskScorer:      {KindFloodRisk, KindBatch},
	ml.FamilyNowcaster:       {KindNowcast},
	ml.FamilyAnomalyDetector: {KindAnomaly},
}

// ClearModelCache drops every cached prediction produced by one family.
func (s *PredictionService) ClearModelCache(ctx context.Context, family ml.Family) (int, error) {
	removed := 0
	for _, kind := range familyKinds[family] {
		n, err := s.cache.Clear(ctx, kind)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// CacheStats surfaces cache effectiveness for the metrics endpoint.
func (s *PredictionService) CacheStats(ctx context.Context) (*redis.CacheStats, error) {
	return s.cache.Stats(ctx)
}

// PerformanceStats snapshots the in-process performance monitor.
func (s *PredictionService) PerformanceStats() monitoring.PerformanceStats {
	return s.monitor.Snapshot()
}

// ResetPerformance clears the performance monitor.
func (s *PredictionService) ResetPerformance() {
	s.monitor.Reset()
}

// Ready reports whether every model family has an active handle.
func (s *PredictionService) Ready() bool {
	return s.registry.Ready()
}

// Warmup exercises each loaded model once with a synthetic sample so the
// first real request pays no first-use cost. Bypasses the cache; failures
// are logged and ignored.
func (s *PredictionService) Warmup(ctx context.Context) {
	now := time.Now().UTC()

	if _, err := s.scorer.Score(ctx, &models.FloodRiskRequest{
		Latitude: 6.5244, Longitude: 3.3792,
		RainfallMM: 10, Temperature: 27, Humidity: 70,
	}); err != nil {
		s.logger.Warn(ctx, "risk scorer warmup failed", logger.String("error", err.Error()))
	}

	sequence := make([]models.WeatherSample, 7)
	for i := range sequence {
		sequence[i] = models.WeatherSample{
			Timestamp:   now.Add(time.Duration(i-7) * 24 * time.Hour),
			RainfallMM:  10,
			Temperature: 27,
			Humidity:    70,
		}
	}
	if _, err := s.nowcaster.Project(ctx, &models.NowcastRequest{
		Latitude: 6.5244, Longitude: 3.3792,
		Sequence: sequence, Horizons: []int{1},
	}); err != nil {
		s.logger.Warn(ctx, "nowcaster warmup failed", logger.String("error", err.Error()))
	}

	if _, err := s.classifier.Classify(ctx, &models.SensorReading{
		DeviceID: "warmup", WaterLevelCM: 50, RainfallMM: 10,
		Temperature: 27, Humidity: 70, Timestamp: now,
	}); err != nil {
		s.logger.Warn(ctx, "anomaly classifier warmup failed", logger.String("error", err.Error()))
	}
}
