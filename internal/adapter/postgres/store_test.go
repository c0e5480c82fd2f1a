package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
)

func TestInsertAlertIsIdempotent(t *testing.T) {
	alert := domain.NewAlert(domain.ThreatAssessment{
		Reading: domain.Reading{
			Location:  domain.Location{Name: "Chennai", State: "Tamil Nadu", Lat: 13.08, Lon: 80.27},
			Timestamp: time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC),
			Tide:      domain.TideReading{Level: 4.2},
			Weather:   domain.WeatherReading{WindSpeed: 65, Pressure: 980},
		},
		Level:      domain.LevelCritical,
		ThreatType: domain.ThreatSevereSurge,
		Severity:   0.8,
		Confidence: 0.9,
	})

	query, args, err := insertAlert(alert).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO alerts")
	assert.Contains(t, query, "ON CONFLICT (id) DO NOTHING")
	assert.Contains(t, query, "$17", "expected dollar placeholders for all columns")
	require.Len(t, args, 17)
	assert.Equal(t, alert.ID, args[0])
	assert.Equal(t, "Chennai", args[1])
}
