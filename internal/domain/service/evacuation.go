package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/floodguard/serving/internal/domain/models"
)

const (
	earthRadiusMeters = 6371000.0
	circleVertices    = 32
	maxEvacuationTime = 180
)

// defaultZoneRadii are used when a request names no radii.
var defaultZoneRadii = []int{500, 1000, 2000}

var priorityColors = map[models.ZonePriority]string{
	models.PriorityImmediate: "#FF0000",
	models.PriorityHigh:      "#FF6600",
	models.PriorityMedium:    "#FFAA00",
	models.PriorityLow:       "#FFEE00",
}

// EvacuationPlanner derives concentric evacuation zones around a point and
// renders them as GeoJSON.
type EvacuationPlanner struct{}

// NewEvacuationPlanner creates the planner.
func NewEvacuationPlanner() *EvacuationPlanner {
	return &EvacuationPlanner{}
}

// Generate builds the zone set, ordered by increasing radius.
func (p *EvacuationPlanner) Generate(ctx context.Context, req *models.EvacuationRequest) (*models.EvacuationPlan, error) {
	radii := req.ZoneRadii
	if len(radii) == 0 {
		radii = defaultZoneRadii
	}
	radii = append([]int(nil), radii...)
	sort.Ints(radii)

	plan := &models.EvacuationPlan{
		GeoJSON:     models.FeatureCollection{Type: "FeatureCollection"},
		GeneratedAt: time.Now().UTC(),
	}

	for _, radius := range radii {
		priority := zonePriority(radius, req.RiskCategory)
		evacTime := evacuationTime(radius, priority)

		zone := models.EvacuationZone{
			ZoneID:                fmt.Sprintf("zone_%dm", radius),
			RadiusMeters:          radius,
			Priority:              priority,
			EvacuationTimeMinutes: evacTime,
			RecommendedRoutes:     recommendedRoutes(radius, priority),
		}
		if req.PopulationDensity > 0 {
			affected := estimateAffected(radius, req.PopulationDensity)
			zone.EstimatedAffected = &affected
		}
		plan.Zones = append(plan.Zones, zone)

		properties := map[string]interface{}{
			"zone_id":                 zone.ZoneID,
			"radius_meters":           radius,
			"priority":                string(priority),
			"risk_level":              string(req.RiskCategory),
			"flood_probability":       req.FloodProbability,
			"evacuation_time_minutes": evacTime,
			"recommended_routes":      zone.RecommendedRoutes,
			"color":                   priorityColors[priority],
		}
		if zone.EstimatedAffected != nil {
			properties["estimated_affected"] = *zone.EstimatedAffected
		}
		plan.GeoJSON.Features = append(plan.GeoJSON.Features, models.Feature{
			Type:       "Feature",
			Geometry:   circlePolygon(req.Latitude, req.Longitude, float64(radius)),
			Properties: properties,
		})
	}

	plan.GeoJSON.Features = append(plan.GeoJSON.Features, models.Feature{
		Type: "Feature",
		Geometry: models.Geometry{
			Type:        "Point",
			Coordinates: []float64{req.Longitude, req.Latitude},
		},
		Properties: map[string]interface{}{
			"marker":        "center",
			"location_name": req.LocationName,
			"risk_level":    string(req.RiskCategory),
		},
	})

	if req.IncludeShelters {
		plan.Shelters = nearbyShelters(req.Latitude, req.Longitude, 3)
		for _, shelter := range plan.Shelters {
			plan.GeoJSON.Features = append(plan.GeoJSON.Features, models.Feature{
				Type: "Feature",
				Geometry: models.Geometry{
					Type:        "Point",
					Coordinates: []float64{shelter.Longitude, shelter.Latitude},
				},
				Properties: map[string]interface{}{
					"marker":          "shelter",
					"name":            shelter.Name,
					"capacity":        shelter.Capacity,
					"distance_meters": shelter.DistanceMeters,
				},
			})
		}
	}

	return plan, nil
}

// zonePriority looks up urgency by radius bucket and risk: closer zones and
// higher risk evacuate first.
func zonePriority(radiusMeters int, risk models.RiskCategory) models.ZonePriority {
	switch {
	case radiusMeters <= 500:
		if risk == models.RiskExtreme || risk == models.RiskHigh {
			return models.PriorityImmediate
		}
		return models.PriorityHigh
	case radiusMeters <= 1000:
		switch risk {
		case models.RiskExtreme:
			return models.PriorityImmediate
		case models.RiskHigh:
			return models.PriorityHigh
		default:
			return models.PriorityMedium
		}
	default:
		switch risk {
		case models.RiskExtreme:
			return models.PriorityHigh
		case models.RiskHigh:
			return models.PriorityMedium
		default:
			return models.PriorityLow
		}
	}
}

// evacuationTime adds 5 minutes per 500 m of radius to the priority's base
// time, capped at 3 hours.
func evacuationTime(radiusMeters int, priority models.ZonePriority) int {
	base := map[models.ZonePriority]int{
		models.PriorityImmediate: 15,
		models.PriorityHigh:      30,
		models.PriorityMedium:    60,
		models.PriorityLow:       120,
	}[priority]

	minutes := base + (radiusMeters/500)*5
	if minutes > maxEvacuationTime {
		return maxEvacuationTime
	}
	return minutes
}

// estimateAffected computes population inside the circle from density per km².
func estimateAffected(radiusMeters, densityPerKM2 int) int {
	areaKM2 := math.Pi * math.Pow(float64(radiusMeters)/1000.0, 2)
	return int(areaKM2 * float64(densityPerKM2))
}

func recommendedRoutes(radiusMeters int, priority models.ZonePriority) []string {
	switch priority {
	case models.PriorityImmediate:
		return []string{
			fmt.Sprintf("North Route via Highway %d", radiusMeters/100),
			fmt.Sprintf("East Route via Main Road %d", radiusMeters/100),
			fmt.Sprintf("Emergency Route %d", radiusMeters/100),
		}
	case models.PriorityHigh, models.PriorityMedium:
		return []string{
			"Primary Route to Safe Zone",
			fmt.Sprintf("Secondary Route via Road %d", radiusMeters/500),
		}
	default:
		return []string{"Standard Evacuation Route"}
	}
}

// circlePolygon renders a closed ring around the center using the haversine
// forward formula on a spherical earth.
func circlePolygon(lat, lon, radiusMeters float64) models.Geometry {
	angularRadius := radiusMeters / earthRadiusMeters
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180

	ring := make([][]float64, 0, circleVertices+1)
	for i := 0; i < circleVertices; i++ {
		bearing := 2 * math.Pi * float64(i) / circleVertices

		pointLat := math.Asin(
			math.Sin(latRad)*math.Cos(angularRadius) +
				math.Cos(latRad)*math.Sin(angularRadius)*math.Cos(bearing),
		)
		pointLon := lonRad + math.Atan2(
			math.Sin(bearing)*math.Sin(angularRadius)*math.Cos(latRad),
			math.Cos(angularRadius)-math.Sin(latRad)*math.Sin(pointLat),
		)

		ring = append(ring, []float64{
			pointLon * 180 / math.Pi,
			pointLat * 180 / math.Pi,
		})
	}
	// GeoJSON rings close on their first vertex.
	ring = append(ring, ring[0])

	return models.Geometry{
		Type:        "Polygon",
		Coordinates: [][][]float64{ring},
	}
}

var shelterNames = []string{"Community Center", "School", "Sports Complex", "Temple", "Government Building"}
var shelterResources = []string{"food", "water", "medical", "blankets", "power"}

// nearbyShelters is a deterministic placeholder generator seeded by the
// location, pending a facilities-service integration. Results sort by
// distance.
func nearbyShelters(lat, lon float64, count int) []models.Shelter {
	seed := int64(math.Round(lat*1e4))<<21 ^ int64(math.Round(lon*1e4))
	rng := rand.New(rand.NewSource(seed))

	shelters := make([]models.Shelter, 0, count)
	for i := 0; i < count; i++ {
		offsetLat := (rng.Float64() - 0.5) * 0.04
		offsetLon := (rng.Float64() - 0.5) * 0.04
		distance := math.Sqrt(offsetLat*offsetLat+offsetLon*offsetLon) * 111000

		resources := append([]string(nil), shelterResources...)
		rng.Shuffle(len(resources), func(a, b int) {
			resources[a], resources[b] = resources[b], resources[a]
		})

		shelters = append(shelters, models.Shelter{
			Name:               fmt.Sprintf("%s %c", shelterNames[rng.Intn(len(shelterNames))], 'A'+i),
			Latitude:           lat + offsetLat,
			Longitude:          lon + offsetLon,
			Capacity:           []int{500, 1000, 1500, 2000, 3000}[rng.Intn(5)],
			DistanceMeters:     int(distance),
			AvailableResources: resources[:3+rng.Intn(3)],
		})
	}

	sort.Slice(shelters, func(a, b int) bool {
		return shelters[a].DistanceMeters < shelters[b].DistanceMeters
	})
	return shelters
}
