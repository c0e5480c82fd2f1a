// Package kafka consumes sensor readings published by field gateways, as an
// alternative to the built-in simulator.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
)

const (
	// firstMessageWait bounds how long one poll blocks waiting for data.
	firstMessageWait = time.Second
	// drainWait bounds each follow-up fetch once the batch has started.
	drainWait = 50 * time.Millisecond
	maxBatch  = 64
)

// Source reads JSON-encoded readings from a Kafka topic.
type Source struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewSource creates a consumer in the given group. Offsets are committed
// automatically by the group.
func NewSource(brokers []string, topic, groupID string, logger *slog.Logger) *Source {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Source{reader: r, logger: logger}
}

// NextReadings fetches the readings currently available on the topic, up to
// one batch. An empty topic yields an empty slice, not an error. Malformed
// messages are logged and skipped so one bad producer cannot stall ingestion.
func (s *Source) NextReadings(ctx context.Context) ([]domain.Reading, error) {
	var readings []domain.Reading

	wait := firstMessageWait
	for len(readings) < maxBatch {
		fetchCtx, cancel := context.WithTimeout(ctx, wait)
		msg, err := s.reader.ReadMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if ctx.Err() != nil {
				return readings, ctx.Err()
			}
			return readings, fmt.Errorf("read message: %w", err)
		}

		reading, err := parseReading(msg)
		if err != nil {
			s.logger.Warn("skipping malformed reading",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		readings = append(readings, reading)
		wait = drainWait
	}
	return readings, nil
}

func (s *Source) Close() error {
	return s.reader.Close()
}

// parseReading decodes one message, falling back to the broker timestamp when
// the producer omitted one.
func parseReading(msg kafkago.Message) (domain.Reading, error) {
	var reading domain.Reading
	if err := json.Unmarshal(msg.Value, &reading); err != nil {
		return domain.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if reading.Location.Name == "" {
		return domain.Reading{}, errors.New("reading missing location name")
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = msg.Time
	}
	return reading, nil
}
