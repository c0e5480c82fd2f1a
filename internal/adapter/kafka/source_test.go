package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	msg := kafkago.Message{
		Topic:     "coastal-readings",
		Partition: 1,
		Offset:    7,
		Value: []byte(`{
			"location": {"name": "Chennai", "state": "Tamil Nadu", "lat": 13.08, "lon": 80.27, "priority": "HIGH"},
			"timestamp": "2026-03-14T06:00:00Z",
			"tide": {"tide_level": 3.6},
			"weather": {"wind_speed": 48, "pressure": 996, "temperature": 29}
		}`),
	}

	reading, err := parseReading(msg)
	require.NoError(t, err)

	assert.Equal(t, "Chennai", reading.Location.Name)
	assert.Equal(t, time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC), reading.Timestamp.UTC())
	assert.InDelta(t, 3.6, reading.Tide.Level, 1e-9)
	assert.InDelta(t, 48, reading.Weather.WindSpeed, 1e-9)
}

func TestParseReadingFallsBackToBrokerTime(t *testing.T) {
	brokerTime := time.Date(2026, 3, 14, 6, 0, 5, 0, time.UTC)
	msg := kafkago.Message{
		Time:  brokerTime,
		Value: []byte(`{"location": {"name": "Kochi"}}`),
	}

	reading, err := parseReading(msg)
	require.NoError(t, err)
	assert.Equal(t, brokerTime, reading.Timestamp)
}

func TestParseReadingRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{"invalid json", []byte(`{not json`)},
		{"missing location", []byte(`{"tide": {"level": 2.0}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReading(kafkago.Message{Value: tt.value})
			assert.Error(t, err)
		})
	}
}
