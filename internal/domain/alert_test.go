package domain_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surgeAssessment() domain.ThreatAssessment {
	r := calmReading()
	r.Tide.Level = 4.2
	r.Weather.WindSpeed = 65
	r.Weather.Pressure = 980
	return domain.NewEvaluator(domain.DefaultTiers(), nil).Evaluate(r)
}

func TestNewAlert_DeterministicID(t *testing.T) {
	a := surgeAssessment()

	first := domain.NewAlert(a)
	second := domain.NewAlert(a)

	assert.Equal(t, first.ID, second.ID)
	assert.Contains(t, first.ID, domain.ThreatSevereSurge+"-")

	// A different reading time produces a different alert identity.
	a.Reading.Timestamp = a.Reading.Timestamp.Add(time.Minute)
	third := domain.NewAlert(a)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestNewAlert_CarriesAssessment(t *testing.T) {
	a := surgeAssessment()
	alert := domain.NewAlert(a)

	assert.Equal(t, a.Reading.Location, alert.Location)
	assert.Equal(t, a.Severity, alert.Severity)
	assert.Equal(t, a.Confidence, alert.Confidence)
	assert.Equal(t, "IMMEDIATE", alert.ResponsePriority)
	assert.Equal(t, a.Reading.Tide.Level, alert.Snapshot.TideLevel)
	assert.Equal(t, a.Reading.Weather.WindSpeed, alert.Snapshot.WindSpeed)
	require.NotEmpty(t, alert.Recommendations)
	assert.Contains(t, alert.Recommendations, "IMMEDIATE ACTION REQUIRED")
}

func TestAlert_WithPrependedActionsCopies(t *testing.T) {
	alert := domain.NewAlert(surgeAssessment())
	original := append([]string(nil), alert.Recommendations...)

	custom := alert.WithPrependedActions([]string{"Issue maritime safety warning"})

	assert.Equal(t, "Issue maritime safety warning", custom.Recommendations[0])
	assert.Equal(t, original, custom.Recommendations[1:])
	if diff := cmp.Diff(original, alert.Recommendations); diff != "" {
		t.Errorf("original alert mutated (-want +got):\n%s", diff)
	}
}

func TestResponsePriorityByLevel(t *testing.T) {
	tests := []struct {
		level domain.ThreatLevel
		want  string
	}{
		{domain.LevelCritical, "IMMEDIATE"},
		{domain.LevelHigh, "URGENT"},
		{domain.LevelMedium, "ELEVATED"},
		{domain.LevelNone, "ROUTINE"},
	}

	for _, tt := range tests {
		a := surgeAssessment()
		a.Level = tt.level
		assert.Equal(t, tt.want, domain.NewAlert(a).ResponsePriority)
	}
}
