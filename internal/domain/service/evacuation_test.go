package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodguard/serving/internal/domain/models"
)

func TestGenerateZonesHighRisk(t *testing.T) {
	planner := NewEvacuationPlanner()

	plan, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		Latitude:         28.6139,
		Longitude:        77.2090,
		FloodProbability: 0.75,
		RiskCategory:     models.RiskHigh,
		ZoneRadii:        []int{500, 1000, 2000},
	})
	require.NoError(t, err)
	require.Len(t, plan.Zones, 3)

	assert.Equal(t, models.PriorityImmediate, plan.Zones[0].Priority)
	assert.Equal(t, models.PriorityHigh, plan.Zones[1].Priority)
	assert.Equal(t, models.PriorityMedium, plan.Zones[2].Priority)

	assert.Equal(t, 20, plan.Zones[0].EvacuationTimeMinutes)
	assert.Equal(t, 40, plan.Zones[1].EvacuationTimeMinutes)
	assert.Equal(t, 80, plan.Zones[2].EvacuationTimeMinutes)
}

func TestZonePriorityTable(t *testing.T) {
	cases := []struct {
		radius int
		risk   models.RiskCategory
		want   models.ZonePriority
	}{
		{500, models.RiskExtreme, models.PriorityImmediate},
		{500, models.RiskModerate, models.PriorityHigh},
		{1000, models.RiskExtreme, models.PriorityImmediate},
		{1000, models.RiskHigh, models.PriorityHigh},
		{1000, models.RiskLow, models.PriorityMedium},
		{2000, models.RiskExtreme, models.PriorityHigh},
		{2000, models.RiskHigh, models.PriorityMedium},
		{2000, models.RiskLow, models.PriorityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, zonePriority(tc.radius, tc.risk),
			"radius=%d risk=%s", tc.radius, tc.risk)
	}
}

func TestEvacuationTimeCapAndMonotonicity(t *testing.T) {
	// Non-decreasing in radius for a fixed priority.
	prev := 0
	for radius := 500; radius <= 30000; radius += 500 {
		minutes := evacuationTime(radius, models.PriorityLow)
		assert.GreaterOrEqual(t, minutes, prev)
		assert.LessOrEqual(t, minutes, maxEvacuationTime)
		prev = minutes
	}

	assert.Equal(t, maxEvacuationTime, evacuationTime(50000, models.PriorityImmediate))
}

func TestZoneRadiiSortedAndDefaulted(t *testing.T) {
	planner := NewEvacuationPlanner()

	plan, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		RiskCategory: models.RiskModerate,
		ZoneRadii:    []int{2000, 500, 1000},
	})
	require.NoError(t, err)
	require.Len(t, plan.Zones, 3)
	assert.Equal(t, 500, plan.Zones[0].RadiusMeters)
	assert.Equal(t, 2000, plan.Zones[2].RadiusMeters)

	defaulted, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		RiskCategory: models.RiskModerate,
	})
	require.NoError(t, err)
	assert.Len(t, defaulted.Zones, 3)
}

func TestAffectedPopulation(t *testing.T) {
	planner := NewEvacuationPlanner()

	plan, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		RiskCategory:      models.RiskHigh,
		PopulationDensity: 11320,
		ZoneRadii:         []int{1000},
	})
	require.NoError(t, err)
	require.NotNil(t, plan.Zones[0].EstimatedAffected)
	// π × 1 km² × 11320
	expected := math.Pi * 11320.0
	assert.Equal(t, int(expected), *plan.Zones[0].EstimatedAffected)
}

func TestCirclePolygonClosedRing(t *testing.T) {
	geometry := circlePolygon(28.6139, 77.2090, 1000)

	require.Equal(t, "Polygon", geometry.Type)
	rings, ok := geometry.Coordinates.([][][]float64)
	require.True(t, ok)
	require.Len(t, rings, 1)

	ring := rings[0]
	assert.GreaterOrEqual(t, len(ring), 33) // 32 segments plus the closing vertex
	assert.Equal(t, ring[0], ring[len(ring)-1])

	// Every vertex sits roughly one radius from the center.
	for _, vertex := range ring {
		dLat := (vertex[1] - 28.6139) * 111000
		dLon := (vertex[0] - 77.2090) * 111000 * math.Cos(28.6139*math.Pi/180)
		distance := math.Sqrt(dLat*dLat + dLon*dLon)
		assert.InDelta(t, 1000, distance, 25)
	}
}

func TestGeoJSONFeatureSet(t *testing.T) {
	planner := NewEvacuationPlanner()

	plan, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		Latitude:        6.52,
		Longitude:       3.37,
		RiskCategory:    models.RiskExtreme,
		IncludeShelters: true,
		ZoneRadii:       []int{500, 1000},
	})
	require.NoError(t, err)

	assert.Equal(t, "FeatureCollection", plan.GeoJSON.Type)
	// 2 polygons + 1 center + 3 shelters
	assert.Len(t, plan.GeoJSON.Features, 6)
	assert.Len(t, plan.Shelters, 3)

	assert.Equal(t, "#FF0000", plan.GeoJSON.Features[0].Properties["color"])

	// Shelter generation is deterministic for a fixed location.
	again, err := planner.Generate(context.Background(), &models.EvacuationRequest{
		Latitude:        6.52,
		Longitude:       3.37,
		RiskCategory:    models.RiskExtreme,
		IncludeShelters: true,
		ZoneRadii:       []int{500, 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.Shelters, again.Shelters)
}
