package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"
)

// MeasurementSnapshot is the subset of triggering measurements carried on an
// alert for notification templates and the audit record.
type MeasurementSnapshot struct {
	TideLevel      float64 `json:"tide_level"`
	WindSpeed      float64 `json:"wind_speed"`
	Pressure       float64 `json:"pressure"`
	PollutionIndex float64 `json:"pollution_index"`
}

// Alert is the unit handed to the notification dispatcher. Created exactly
// once per qualifying assessment; per-channel customization must act on a
// copy via WithPrependedActions.
type Alert struct {
	ID               string              `json:"id"`
	Location         Location            `json:"location"`
	ThreatType       string              `json:"threat_type"`
	Level            ThreatLevel         `json:"threat_level"`
	Severity         float64             `json:"severity_score"`
	Confidence       float64             `json:"confidence"`
	Timestamp        time.Time           `json:"timestamp"`
	ResponsePriority string              `json:"response_priority"`
	Recommendations  []string            `json:"recommendations"`
	EstimatedImpact  string              `json:"estimated_impact"`
	Snapshot         MeasurementSnapshot `json:"data_snapshot"`
}

// NewAlert builds the alert for a qualifying assessment. The ID is a
// deterministic hash of the triggering reading's identity, so replaying the
// same assessment produces the same alert and downstream inserts stay
// idempotent (ON CONFLICT DO NOTHING).
func NewAlert(a ThreatAssessment) Alert {
	r := a.Reading
	return Alert{
		ID:               alertID(a.ThreatType, r.Location.Name, r.Timestamp),
		Location:         r.Location,
		ThreatType:       a.ThreatType,
		Level:            a.Level,
		Severity:         a.Severity,
		Confidence:       a.Confidence,
		Timestamp:        r.Timestamp,
		ResponsePriority: responsePriority(a.Level),
		Recommendations:  recommendations(a.ThreatType, a.Severity),
		EstimatedImpact:  estimatedImpact(a.Severity, r.Location.Priority),
		Snapshot: MeasurementSnapshot{
			TideLevel:      r.Tide.Level,
			WindSpeed:      r.Weather.WindSpeed,
			Pressure:       r.Weather.Pressure,
			PollutionIndex: r.WaterQuality.PollutionIndex,
		},
	}
}

// WithPrependedActions returns a copy of the alert with the given actions
// ahead of the original recommendation list. The receiver is not mutated.
func (a Alert) WithPrependedActions(actions []string) Alert {
	out := a
	out.Recommendations = slices.Concat(actions, a.Recommendations)
	return out
}

func alertID(threatType, location string, ts time.Time) string {
	input := fmt.Sprintf("%s|%s|%d", threatType, location, ts.UTC().Unix())
	hash := sha256.Sum256([]byte(input))
	return threatType + "-" + hex.EncodeToString(hash[:8])
}

func responsePriority(level ThreatLevel) string {
	switch level {
	case LevelCritical:
		return "IMMEDIATE"
	case LevelHigh:
		return "URGENT"
	case LevelMedium:
		return "ELEVATED"
	default:
		return "ROUTINE"
	}
}

// recommendations maps the threat type to its action list, then appends the
// severity-driven escalation line.
func recommendations(threatType string, severity float64) []string {
	var recs []string
	switch threatType {
	case ThreatStormSurge, ThreatSevereSurge:
		recs = []string{
			"Issue storm surge warning",
			"Advise evacuation of low-lying areas",
			"Deploy emergency response teams",
		}
	case ThreatContamination:
		recs = []string{
			"Investigate pollution source",
			"Issue water quality advisory",
			"Monitor marine life impact",
		}
	case ThreatHighTide:
		recs = []string{
			"Issue high tide warning",
			"Check coastal infrastructure",
			"Monitor for flooding",
		}
	default:
		recs = []string{"Continue routine monitoring"}
	}

	switch {
	case severity > 0.7:
		recs = append(recs, "IMMEDIATE ACTION REQUIRED")
	case severity > 0.4:
		recs = append(recs, "Monitor closely and prepare response")
	}
	return recs
}

func estimatedImpact(severity float64, priority PriorityTier) string {
	scale := "localized"
	switch {
	case severity > 0.7:
		scale = "widespread"
	case severity > 0.4:
		scale = "regional"
	}
	if priority == PriorityCritical || priority == PriorityHigh {
		return fmt.Sprintf("%s impact expected near a %s-priority population center", scale, priority)
	}
	return scale + " impact expected"
}
