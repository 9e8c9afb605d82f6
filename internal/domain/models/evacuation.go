package models

import "time"

// ZonePriority orders evacuation urgency.
type ZonePriority string

const (
	PriorityImmediate ZonePriority = "immediate"
	PriorityHigh      ZonePriority = "high"
	PriorityMedium    ZonePriority = "medium"
	PriorityLow       ZonePriority = "low"
)

// EvacuationRequest asks for concentric evacuation zones around a point.
type EvacuationRequest struct {
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	FloodProbability  float64      `json:"flood_probability"`
	RiskCategory      RiskCategory `json:"risk_level"`
	LocationName      string       `json:"location_name,omitempty"`
	PopulationDensity int          `json:"population_density,omitempty"`
	IncludeShelters   bool         `json:"include_shelters"`
	ZoneRadii         []int        `json:"zone_radii,omitempty"`
}

// EvacuationZone describes one concentric zone.
type EvacuationZone struct {
	ZoneID                string       `json:"zone_id"`
	RadiusMeters          int          `json:"radius_meters"`
	Priority              ZonePriority `json:"priority"`
	EstimatedAffected     *int         `json:"estimated_affected,omitempty"`
	EvacuationTimeMinutes int          `json:"evacuation_time_minutes"`
	RecommendedRoutes     []string     `json:"recommended_routes"`
}

// Shelter is a candidate evacuation destination.
type Shelter struct {
	Name               string   `json:"name"`
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
	Capacity           int      `json:"capacity"`
	DistanceMeters     int      `json:"distance_meters"`
	AvailableResources []string `json:"available_resources"`
}

// GeoJSON geometry and feature types, shaped to the GeoJSON spec so the
// output renders directly on a map client.

type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// EvacuationPlan is the full zone set plus rendered geometry.
type EvacuationPlan struct {
	Zones       []EvacuationZone  `json:"zones"`
	Shelters    []Shelter         `json:"shelters,omitempty"`
	GeoJSON     FeatureCollection `json:"geojson"`
	GeneratedAt time.Time         `json:"generated_at"`
	Cached      bool              `json:"cached"`
}
