package domain

import (
	"fmt"
	"math"
	"time"
)

// ThreatLevel is the discrete severity classification of an assessment.
// Ordered NONE < MEDIUM < HIGH < CRITICAL.
type ThreatLevel string

const (
	LevelNone     ThreatLevel = "NONE"
	LevelMedium   ThreatLevel = "MEDIUM"
	LevelHigh     ThreatLevel = "HIGH"
	LevelCritical ThreatLevel = "CRITICAL"
)

// Rank returns the level's position in the NONE..CRITICAL ordering.
func (l ThreatLevel) Rank() int {
	switch l {
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return 0
	}
}

// ThreatAssessment is the evaluator's verdict on a single reading. Level and
// Severity are independent signals: the tier comes from threshold crossings,
// the score from additive rule contributions, and the two may disagree.
type ThreatAssessment struct {
	Reading                Reading     `json:"reading"`
	Level                  ThreatLevel `json:"threat_level"`
	Severity               float64     `json:"severity_score"` // [0,1]
	ThreatType             string      `json:"threat_type"`
	Confidence             float64     `json:"confidence"` // [0,1]
	Factors                []string    `json:"threat_factors"`
	RequiresImmediateAlert bool        `json:"requires_immediate_alert"`
	EvaluatedAt            time.Time   `json:"evaluated_at"`
}

// Scorer classifies a reading into a threat label with a probability.
// Implementations range from trained models to the rule-based fallback.
type Scorer interface {
	Score(r Reading) (label string, probability float64)
}

// Thresholds are the per-metric bounds for one tier. A tier is crossed when
// tide or wind is at or above its bound, or pressure is at or below its bound.
type Thresholds struct {
	Tide     float64 // metres
	Wind     float64 // km/h
	Pressure float64 // hPa
}

// TierThresholds holds the three ordered threshold tiers.
type TierThresholds struct {
	Critical Thresholds
	High     Thresholds
	Medium   Thresholds
}

// DefaultTiers returns the instant-threat threshold tiers.
func DefaultTiers() TierThresholds {
	return TierThresholds{
		Critical: Thresholds{Tide: 4.0, Wind: 65, Pressure: 980},
		High:     Thresholds{Tide: 3.5, Wind: 50, Pressure: 990},
		Medium:   Thresholds{Tide: 3.0, Wind: 40, Pressure: 1000},
	}
}

// Metric floors substituted for missing or malformed values. Chosen so a bad
// sensor never raises a threat on its own.
const (
	floorTide      = 0
	floorWind      = 0
	floorPressure  = 1013
	floorPollution = 0
	floorOxygen    = 8
)

// satelliteSeverityCutoff is the severity above which a satellite threat
// entry becomes a contributing factor.
const satelliteSeverityCutoff = 0.7

// Evaluator turns readings into threat assessments. Pure and deterministic
// given fixed tiers and scorer output; safe for concurrent use.
type Evaluator struct {
	tiers  TierThresholds
	scorer Scorer
}

// NewEvaluator creates an evaluator with the given tiers and scorer.
// A nil scorer falls back to the rule-based classifier.
func NewEvaluator(tiers TierThresholds, scorer Scorer) *Evaluator {
	if scorer == nil {
		scorer = RuleScorer{}
	}
	return &Evaluator{tiers: tiers, scorer: scorer}
}

// Evaluate assesses a single reading. It never fails: malformed metric values
// are substituted with no-threat floors and noted as data-quality factors.
func (e *Evaluator) Evaluate(r Reading) ThreatAssessment {
	var factors []string

	tide, factors := metricOrFloor(r.Tide.Level, floorTide, "tide level", factors)
	wind, factors := metricOrFloor(r.Weather.WindSpeed, floorWind, "wind speed", factors)
	pressure, factors := metricOrFloor(r.Weather.Pressure, floorPressure, "pressure", factors)
	pollution, factors := metricOrFloor(r.WaterQuality.PollutionIndex, floorPollution, "pollution index", factors)
	oxygen, factors := metricOrFloor(r.WaterQuality.DissolvedOxygen, floorOxygen, "dissolved oxygen", factors)

	level := e.classifyTier(tide, wind, pressure)
	severity := severityScore(tide, wind, pressure, pollution, oxygen)
	factors = append(factors, metricFactors(tide, wind, pressure, e.tiers.High)...)
	factors = append(factors, satelliteFactors(r.Satellite.Threats)...)
	factors = append(factors, riskFactors(r)...)

	label, probability := e.scorer.Score(r)
	threatType := resolveThreatType(label, tide, wind, pollution)

	return ThreatAssessment{
		Reading:                r,
		Level:                  level,
		Severity:               severity,
		ThreatType:             threatType,
		Confidence:             probability,
		Factors:                factors,
		RequiresImmediateAlert: level == LevelHigh || level == LevelCritical,
		EvaluatedAt:            clock.Now(),
	}
}

// classifyTier returns the first tier, checked CRITICAL→MEDIUM, where any
// metric crosses its bound. OR across metrics within a tier.
func (e *Evaluator) classifyTier(tide, wind, pressure float64) ThreatLevel {
	for _, tier := range []struct {
		level  ThreatLevel
		bounds Thresholds
	}{
		{LevelCritical, e.tiers.Critical},
		{LevelHigh, e.tiers.High},
		{LevelMedium, e.tiers.Medium},
	} {
		if tide >= tier.bounds.Tide && tier.bounds.Tide > 0 ||
			wind >= tier.bounds.Wind && tier.bounds.Wind > 0 ||
			pressure <= tier.bounds.Pressure && tier.bounds.Pressure > 0 {
			return tier.level
		}
	}
	return LevelNone
}

// severityScore accumulates the continuous [0,1] score from weighted rule
// contributions, capped at 1.0. Independent of the discrete tier.
func severityScore(tide, wind, pressure, pollution, oxygen float64) float64 {
	var severity float64

	switch {
	case tide > 4:
		severity += 0.3
	case tide > 3.5:
		severity += 0.2
	}

	switch {
	case wind > 50:
		severity += 0.25
	case wind > 35:
		severity += 0.15
	}

	switch {
	case pressure < 990:
		severity += 0.2
	case pressure < 1000:
		severity += 0.1
	}

	switch {
	case pollution > 0.4:
		severity += 0.2
	case pollution > 0.2:
		severity += 0.1
	}

	if oxygen < 5 {
		severity += 0.15
	}

	return math.Min(severity, 1.0)
}

// metricFactors describes which metrics crossed the HIGH tier bounds.
func metricFactors(tide, wind, pressure float64, high Thresholds) []string {
	var factors []string
	if tide >= high.Tide {
		factors = append(factors, fmt.Sprintf("extreme tide: %.2fm", tide))
	}
	if wind >= high.Wind {
		factors = append(factors, fmt.Sprintf("high winds: %.1fkm/h", wind))
	}
	if pressure <= high.Pressure {
		factors = append(factors, fmt.Sprintf("low pressure: %.1fhPa", pressure))
	}
	return factors
}

// satelliteFactors folds in externally detected anomalies above the severity cutoff.
func satelliteFactors(threats []SatelliteThreat) []string {
	var factors []string
	for _, t := range threats {
		if t.Severity > satelliteSeverityCutoff {
			factors = append(factors, fmt.Sprintf("satellite: %s (%.1f)", t.Type, t.Severity))
		}
	}
	return factors
}

// riskFactors notes operational conditions that degrade monitoring quality.
func riskFactors(r Reading) []string {
	var factors []string
	if r.Tide.BatteryLevel > 0 && r.Tide.BatteryLevel < 0.3 {
		factors = append(factors, "low sensor battery, monitoring may be interrupted")
	}
	if r.Satellite.CloudCover > 0.7 {
		factors = append(factors, "high cloud cover, satellite monitoring limited")
	}
	if r.Weather.Visibility > 0 && r.Weather.Visibility < 5 {
		factors = append(factors, "poor visibility, navigation hazardous")
	}
	return factors
}

// resolveThreatType prefers the scorer's label, then the sensor-fusion rules.
func resolveThreatType(label string, tide, wind, pollution float64) string {
	if label != "" && label != ThreatNormal {
		return label
	}
	switch {
	case tide >= 3.8 && wind >= 40:
		return ThreatStormSurge
	case pollution > 0.3:
		return ThreatContamination
	case tide >= 3.5:
		return ThreatHighTide
	default:
		return ThreatNormal
	}
}

// metricOrFloor substitutes the floor for missing values and appends a
// data-quality factor so the gap is visible downstream. For metrics whose
// valid physical range excludes zero (pressure, dissolved oxygen), a
// non-positive value means the field was absent upstream: wire formats
// decode absent numbers to 0, which would otherwise read as an extreme
// measurement.
func metricOrFloor(v, floor float64, name string, factors []string) (float64, []string) {
	if math.IsNaN(v) || math.IsInf(v, 0) || (floor != 0 && v <= 0) {
		return floor, append(factors, "sensor data missing: "+name)
	}
	return v, factors
}

// Threat type labels shared by the evaluator and the scorer implementations.
const (
	ThreatNormal        = "normal"
	ThreatStormSurge    = "storm_surge"
	ThreatSevereSurge   = "severe_storm_surge"
	ThreatHighTide      = "high_tide_warning"
	ThreatContamination = "water_contamination"
)

// RuleScorer is the fallback classifier used when no trained model is
// injected. Mirrors the behavior of the untrained detection path.
type RuleScorer struct{}

// Score applies fixed sensor-fusion rules.
func (RuleScorer) Score(r Reading) (string, float64) {
	tide := r.Tide.Level
	wind := r.Weather.WindSpeed
	if math.IsNaN(tide) {
		tide = floorTide
	}
	if math.IsNaN(wind) {
		wind = floorWind
	}

	switch {
	case tide > 4 && wind > 45:
		return ThreatSevereSurge, 0.9
	case tide > 3.5:
		return ThreatHighTide, 0.7
	default:
		return ThreatNormal, 0.1
	}
}
