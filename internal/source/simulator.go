// Package source produces readings for the ingestion loop. The simulator
// stands in for live sensor and weather feeds, generating the same reading
// shape the pipeline sees in production.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// extremeEventProbability is the per-location chance of injecting a surge
// scenario into a cycle, keeping the threat path exercised end to end.
const extremeEventProbability = 0.05

// satellite threat base probabilities per pass. Ordered so consuming the rng
// stays deterministic under a fixed seed.
var satelliteThreatOdds = []struct {
	threatType string
	odds       float64
}{
	{"algal_bloom", 0.03},
	{"oil_spill", 0.01},
	{"illegal_dumping", 0.02},
	{"coastal_erosion", 0.04},
	{"plastic_accumulation", 0.06},
	{"sedimentation", 0.05},
}

// Simulator generates plausible readings for every catalog location using
// tidal harmonics with priority-weighted volatility and occasional extreme
// events. Deterministic given a seed and a fake clock.
type Simulator struct {
	locations []domain.Location
	logger    *slog.Logger
	clock     clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator over the given locations. A nil clock
// uses real time.
func NewSimulator(locations []domain.Location, seed int64, clk clockwork.Clock, logger *slog.Logger) *Simulator {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Simulator{
		locations: locations,
		logger:    logger,
		clock:     clk,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// NextReadings returns one reading per monitored location. Never blocks and
// never fails; context is accepted for interface symmetry with live sources.
func (s *Simulator) NextReadings(_ context.Context) ([]domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	readings := make([]domain.Reading, 0, len(s.locations))
	for _, loc := range s.locations {
		readings = append(readings, s.simulate(loc, now))
	}
	return readings, nil
}

func (s *Simulator) simulate(loc domain.Location, ts time.Time) domain.Reading {
	hour := float64(ts.Hour()) + float64(ts.Minute())/60

	// Principal lunar (M2), solar (S2), and lunar diurnal (K1) components.
	m2 := 1.2 * math.Cos(hour*math.Pi/6.21)
	s2 := 0.3 * math.Cos(hour*math.Pi/6)
	k1 := 0.4 * math.Cos(hour*math.Pi/12.43)
	baseTide := 2.0 + m2 + s2 + k1

	tideVariation, windFactor := s.volatility(loc.Priority)

	extreme := s.rng.Float64() < extremeEventProbability
	if extreme {
		tideVariation += 2 + s.rng.Float64()*2
		windFactor *= 2
		s.logger.Debug("simulating extreme event", "location", loc.Name)
	}

	baseTemp := 25 + s.rng.Float64()*11 - 3
	tideLevel := math.Max(0, baseTide+tideVariation+s.rng.NormFloat64()*0.15)

	return domain.Reading{
		Location:  loc,
		Timestamp: ts,
		Tide: domain.TideReading{
			Level:        tideLevel,
			Range:        math.Abs(tideLevel - 2.0),
			SensorID:     fmt.Sprintf("TIDE_%s_%s", strings.ReplaceAll(loc.Name, " ", "_"), loc.State),
			Quality:      0.85 + s.rng.Float64()*0.15,
			BatteryLevel: 0.7 + s.rng.Float64()*0.3,
		},
		Weather: domain.WeatherReading{
			Temperature:   baseTemp + s.rng.Float64()*4 - 2,
			Humidity:      60 + s.rng.Float64()*30,
			Pressure:      1013 + s.rng.Float64()*30 - 20,
			WindSpeed:     (s.rng.ExpFloat64()*15 + 5) * windFactor,
			WindDirection: s.rng.Float64() * 360,
			Visibility:    8 + s.rng.Float64()*7,
		},
		WaterQuality: domain.WaterQualityReading{
			PH:              7.8 + s.rng.Float64()*0.5,
			DissolvedOxygen: 6 + s.rng.Float64()*3,
			Turbidity:       s.rng.ExpFloat64() * 2,
			Salinity:        33 + s.rng.Float64()*4,
			Temperature:     baseTemp + s.rng.Float64()*3 - 1,
			PollutionIndex:  s.rng.Float64() * 0.4,
		},
		Satellite: domain.SatelliteReading{
			Threats:      s.satelliteThreats(loc, extreme),
			ImageQuality: 0.8 + s.rng.Float64()*0.2,
			CloudCover:   s.rng.Float64() * 0.4,
		},
	}
}

// volatility returns tide variation and wind scaling by priority tier;
// critical sites see the widest swings.
func (s *Simulator) volatility(priority domain.PriorityTier) (float64, float64) {
	switch priority {
	case domain.PriorityCritical:
		return s.rng.Float64()*2.5 - 0.5, 1.3
	case domain.PriorityHigh:
		return s.rng.Float64()*1.8 - 0.3, 1.1
	default:
		return s.rng.Float64()*1.2 - 0.2, 1.0
	}
}

func (s *Simulator) satelliteThreats(loc domain.Location, extreme bool) []domain.SatelliteThreat {
	var threats []domain.SatelliteThreat
	for _, entry := range satelliteThreatOdds {
		odds := entry.odds
		if extreme {
			odds *= 3
		}
		if s.rng.Float64() >= odds {
			continue
		}
		severity := 0.3 + s.rng.Float64()*0.6
		if extreme {
			severity = math.Min(1.0, severity+0.3)
		}
		threats = append(threats, domain.SatelliteThreat{
			Type:         entry.threatType,
			Severity:     severity,
			Confidence:   0.7 + s.rng.Float64()*0.25,
			Lat:          loc.Lat + s.rng.Float64()*0.02 - 0.01,
			Lon:          loc.Lon + s.rng.Float64()*0.02 - 0.01,
			AreaAffected: 0.1 + s.rng.Float64()*4.9,
		})
	}
	return threats
}
