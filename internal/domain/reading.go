package domain

import (
	"time"
)

// PriorityTier ranks how much operational attention a monitored location gets.
type PriorityTier string

const (
	PriorityLow      PriorityTier = "LOW"
	PriorityMedium   PriorityTier = "MEDIUM"
	PriorityHigh     PriorityTier = "HIGH"
	PriorityCritical PriorityTier = "CRITICAL"
)

// Location identifies a monitored coastal site. Loaded once at startup from
// the catalog and treated as immutable reference data.
type Location struct {
	Name     string       `json:"name" yaml:"name"`
	Lat      float64      `json:"lat" yaml:"lat"`
	Lon      float64      `json:"lon" yaml:"lon"`
	State    string       `json:"state" yaml:"state"`
	Coast    string       `json:"coast" yaml:"coast"`
	Priority PriorityTier `json:"priority" yaml:"priority"`
}

// TideReading holds one tide gauge sample.
type TideReading struct {
	Level        float64 `json:"tide_level"`
	Range        float64 `json:"tidal_range"`
	SensorID     string  `json:"sensor_id"`
	Quality      float64 `json:"quality"`
	BatteryLevel float64 `json:"battery_level"`
}

// WeatherReading holds one meteorological sample. Wind speed is km/h,
// pressure is hPa, visibility is km.
type WeatherReading struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Visibility    float64 `json:"visibility"`
}

// WaterQualityReading holds one water chemistry sample.
type WaterQualityReading struct {
	PH              float64 `json:"ph_level"`
	DissolvedOxygen float64 `json:"dissolved_oxygen"`
	Turbidity       float64 `json:"turbidity"`
	Salinity        float64 `json:"salinity"`
	Temperature     float64 `json:"temperature"`
	PollutionIndex  float64 `json:"pollution_index"`
}

// SatelliteThreat is one anomaly entry reported by the satellite analysis
// feed. Severity and Confidence are in [0,1].
type SatelliteThreat struct {
	Type         string  `json:"type"`
	Severity     float64 `json:"severity"`
	Confidence   float64 `json:"confidence"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	AreaAffected float64 `json:"area_affected"` // km²
}

// SatelliteReading holds the satellite analysis for one pass over a location.
type SatelliteReading struct {
	Threats      []SatelliteThreat `json:"threats_detected"`
	ImageQuality float64           `json:"image_quality"`
	CloudCover   float64           `json:"cloud_cover"`
}

// Reading is one timestamped measurement bundle for one location. Immutable
// once created; the source produces them and the evaluator consumes them.
type Reading struct {
	Location     Location            `json:"location"`
	Timestamp    time.Time           `json:"timestamp"`
	Tide         TideReading         `json:"tide"`
	Weather      WeatherReading      `json:"weather"`
	WaterQuality WaterQualityReading `json:"water_quality"`
	Satellite    SatelliteReading    `json:"satellite"`
}
