package domain_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calmReading() domain.Reading {
	return domain.Reading{
		Location:  domain.Location{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777, State: "Maharashtra", Priority: domain.PriorityCritical},
		Timestamp: time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC),
		Tide:      domain.TideReading{Level: 2.0, Range: 0.3, Quality: 0.95, BatteryLevel: 0.9},
		Weather:   domain.WeatherReading{Temperature: 28, Humidity: 72, Pressure: 1013, WindSpeed: 10, Visibility: 12},
		WaterQuality: domain.WaterQualityReading{
			PH: 8.1, DissolvedOxygen: 7.5, Salinity: 35, PollutionIndex: 0.1,
		},
		Satellite: domain.SatelliteReading{ImageQuality: 0.9, CloudCover: 0.2},
	}
}

func TestEvaluate_CriticalStormConditions(t *testing.T) {
	r := calmReading()
	r.Tide.Level = 4.2
	r.Weather.WindSpeed = 65
	r.Weather.Pressure = 980

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	a := e.Evaluate(r)

	assert.Equal(t, domain.LevelCritical, a.Level)
	assert.True(t, a.RequiresImmediateAlert)
	assert.Equal(t, domain.ThreatSevereSurge, a.ThreatType)
	assert.InDelta(t, 0.9, a.Confidence, 0.001)
	assert.NotEmpty(t, a.Factors)
	// tide>4 + wind>50 + pressure<990
	assert.InDelta(t, 0.75, a.Severity, 0.001)
}

func TestEvaluate_CalmConditions(t *testing.T) {
	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	a := e.Evaluate(calmReading())

	assert.Equal(t, domain.LevelNone, a.Level)
	assert.False(t, a.RequiresImmediateAlert)
	assert.LessOrEqual(t, a.Severity, 0.1)
	assert.Equal(t, domain.ThreatNormal, a.ThreatType)
}

func TestEvaluate_TierOrAcrossMetrics(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*domain.Reading)
		want          domain.ThreatLevel
		wantImmediate bool
	}{
		{
			name:          "pressure alone triggers critical",
			mutate:        func(r *domain.Reading) { r.Weather.Pressure = 975 },
			want:          domain.LevelCritical,
			wantImmediate: true,
		},
		{
			name:          "wind alone triggers high",
			mutate:        func(r *domain.Reading) { r.Weather.WindSpeed = 55 },
			want:          domain.LevelHigh,
			wantImmediate: true,
		},
		{
			name:          "tide alone triggers medium",
			mutate:        func(r *domain.Reading) { r.Tide.Level = 3.1 },
			want:          domain.LevelMedium,
			wantImmediate: false,
		},
	}

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := calmReading()
			tt.mutate(&r)
			a := e.Evaluate(r)
			assert.Equal(t, tt.want, a.Level)
			assert.Equal(t, tt.wantImmediate, a.RequiresImmediateAlert)
		})
	}
}

func TestEvaluate_MissingMetricsNeverRaise(t *testing.T) {
	r := calmReading()
	r.Tide.Level = math.NaN()
	r.Weather.Pressure = math.Inf(-1)

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)

	var a domain.ThreatAssessment
	require.NotPanics(t, func() { a = e.Evaluate(r) })

	assert.Equal(t, domain.LevelNone, a.Level)
	assert.Contains(t, a.Factors, "sensor data missing: tide level")
	assert.Contains(t, a.Factors, "sensor data missing: pressure")
}

func TestEvaluate_AbsentWeatherGroupStaysAtFloor(t *testing.T) {
	// Decoders leave absent metric groups zero-valued. Pressure 0 must read
	// as a missing sensor, not as a record-shattering low.
	r := domain.Reading{Location: domain.Location{Name: "Chennai"}}

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	a := e.Evaluate(r)

	assert.Equal(t, domain.LevelNone, a.Level)
	assert.False(t, a.RequiresImmediateAlert)
	assert.Zero(t, a.Severity)
	assert.Contains(t, a.Factors, "sensor data missing: pressure")
	assert.Contains(t, a.Factors, "sensor data missing: dissolved oxygen")
	for _, f := range a.Factors {
		assert.NotContains(t, f, "low pressure")
	}
}

func TestEvaluate_SatelliteThreatsAboveCutoffBecomeFactors(t *testing.T) {
	r := calmReading()
	r.Satellite.Threats = []domain.SatelliteThreat{
		{Type: "oil_spill", Severity: 0.9, Confidence: 0.9},
		{Type: "plastic_accumulation", Severity: 0.4, Confidence: 0.8},
	}

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	a := e.Evaluate(r)

	assert.Contains(t, a.Factors, "satellite: oil_spill (0.9)")
	for _, f := range a.Factors {
		assert.NotContains(t, f, "plastic_accumulation")
	}
}

func TestEvaluate_SeverityBoundsAndTierMonotonicity(t *testing.T) {
	// Property fuzz over the metric ranges: severity stays in [0,1] and the
	// tier never ranks below what a strictly worse reading produces.
	rng := rand.New(rand.NewSource(42))
	e := domain.NewEvaluator(domain.DefaultTiers(), nil)

	for i := 0; i < 2000; i++ {
		r := calmReading()
		r.Tide.Level = rng.Float64() * 8
		r.Weather.WindSpeed = rng.Float64() * 120
		r.Weather.Pressure = 950 + rng.Float64()*80
		r.WaterQuality.PollutionIndex = rng.Float64()
		r.WaterQuality.DissolvedOxygen = rng.Float64() * 10

		a := e.Evaluate(r)
		require.GreaterOrEqual(t, a.Severity, 0.0)
		require.LessOrEqual(t, a.Severity, 1.0)

		worse := r
		worse.Tide.Level += 0.5
		worse.Weather.WindSpeed += 10
		worse.Weather.Pressure -= 5
		b := e.Evaluate(worse)
		require.GreaterOrEqual(t, b.Level.Rank(), a.Level.Rank(),
			"tide %.2f wind %.2f pressure %.2f", r.Tide.Level, r.Weather.WindSpeed, r.Weather.Pressure)
	}
}

func TestEvaluate_UsesInjectedClock(t *testing.T) {
	frozen := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	e := domain.NewEvaluator(domain.DefaultTiers(), nil)
	a := e.Evaluate(calmReading())
	assert.Equal(t, frozen, a.EvaluatedAt)
}

type stubScorer struct {
	label string
	prob  float64
}

func (s stubScorer) Score(domain.Reading) (string, float64) { return s.label, s.prob }

func TestEvaluate_InjectedScorerWins(t *testing.T) {
	e := domain.NewEvaluator(domain.DefaultTiers(), stubScorer{label: "pollution_event", prob: 0.66})
	a := e.Evaluate(calmReading())

	assert.Equal(t, "pollution_event", a.ThreatType)
	assert.InDelta(t, 0.66, a.Confidence, 0.001)
}

func TestRuleScorer(t *testing.T) {
	tests := []struct {
		name      string
		tide      float64
		wind      float64
		wantLabel string
		wantProb  float64
	}{
		{"severe surge", 4.5, 50, domain.ThreatSevereSurge, 0.9},
		{"high tide", 3.7, 20, domain.ThreatHighTide, 0.7},
		{"normal", 2.0, 10, domain.ThreatNormal, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := calmReading()
			r.Tide.Level = tt.tide
			r.Weather.WindSpeed = tt.wind

			label, prob := domain.RuleScorer{}.Score(r)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantProb, prob, 0.001)
		})
	}
}
