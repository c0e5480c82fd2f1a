package source_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/config"
	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/source"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_OneReadingPerLocation(t *testing.T) {
	catalog := config.DefaultCatalog()
	clk := clockwork.NewFakeClockAt(time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC))
	sim := source.NewSimulator(catalog.Locations, 1, clk, slog.Default())

	readings, err := sim.NextReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, len(catalog.Locations))

	seen := make(map[string]bool)
	for _, r := range readings {
		assert.Equal(t, clk.Now(), r.Timestamp)
		assert.False(t, seen[r.Location.Name], "duplicate location %s", r.Location.Name)
		seen[r.Location.Name] = true
	}
}

func TestSimulator_ReadingsStayPlausible(t *testing.T) {
	locs := []domain.Location{
		{Name: "Testport", Priority: domain.PriorityCritical},
	}
	clk := clockwork.NewFakeClockAt(time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC))
	sim := source.NewSimulator(locs, 7, clk, slog.Default())

	for i := 0; i < 500; i++ {
		readings, err := sim.NextReadings(context.Background())
		require.NoError(t, err)
		r := readings[0]

		assert.GreaterOrEqual(t, r.Tide.Level, 0.0)
		assert.Greater(t, r.Weather.WindSpeed, 0.0)
		assert.InDelta(t, 1013, r.Weather.Pressure, 25)
		assert.GreaterOrEqual(t, r.WaterQuality.PollutionIndex, 0.0)
		assert.LessOrEqual(t, r.WaterQuality.PollutionIndex, 0.4)
		for _, threat := range r.Satellite.Threats {
			assert.GreaterOrEqual(t, threat.Severity, 0.0)
			assert.LessOrEqual(t, threat.Severity, 1.0)
			assert.GreaterOrEqual(t, threat.Confidence, 0.7)
		}
		clk.Advance(2 * time.Second)
	}
}

func TestSimulator_DeterministicWithSeedAndClock(t *testing.T) {
	locs := config.DefaultCatalog().Locations
	at := time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC)

	a, err := source.NewSimulator(locs, 42, clockwork.NewFakeClockAt(at), slog.Default()).NextReadings(context.Background())
	require.NoError(t, err)
	b, err := source.NewSimulator(locs, 42, clockwork.NewFakeClockAt(at), slog.Default()).NextReadings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
