// Package hub tracks live dashboard subscribers and fans out periodic
// snapshots and instant threat events over WebSocket.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/observability"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

// Message type discriminators on the wire.
const (
	TypeLiveData              = "live_data"
	TypeInstantThreat         = "instant_threat"
	TypeConnectionEstablished = "connection_established"
	TypeStatusResponse        = "status_response"
)

// LiveLocation is one location entry inside a live_data envelope.
type LiveLocation struct {
	Name             string              `json:"name"`
	State            string              `json:"state"`
	Lat              float64             `json:"lat"`
	Lon              float64             `json:"lon"`
	TideLevel        float64             `json:"tide_level"`
	WindSpeed        float64             `json:"wind_speed"`
	Pressure         float64             `json:"pressure"`
	Temperature      float64             `json:"temperature"`
	ThreatIndicators int                 `json:"threat_indicators"`
	Priority         domain.PriorityTier `json:"priority"`
	Timestamp        time.Time           `json:"timestamp"`
}

type liveDataMessage struct {
	Type       string         `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	DataPoints int            `json:"data_points"`
	Locations  []LiveLocation `json:"locations"`
}

type instantThreatMessage struct {
	Type string            `json:"type"`
	Data instantThreatData `json:"data"`
}

type instantThreatData struct {
	Location    string             `json:"location"`
	ThreatLevel domain.ThreatLevel `json:"threat_level"`
	ThreatType  string             `json:"threat_type"`
	Severity    float64            `json:"severity_score"`
	Factors     []string           `json:"factors"`
	Timestamp   time.Time          `json:"timestamp"`
	Lat         float64            `json:"lat"`
	Lon         float64            `json:"lon"`
}

type connectionEstablishedMessage struct {
	Type           string              `json:"type"`
	Stats          stats.Snapshot      `json:"stats"`
	LocationsCount int                 `json:"locations_count"`
	RegionsCovered map[string][]string `json:"regions_covered"`
}

type statusResponseMessage struct {
	Type      string         `json:"type"`
	Stats     stats.Snapshot `json:"stats"`
	Timestamp time.Time      `json:"timestamp"`
}

// Hub maintains the set of active subscriber connections and broadcasts
// messages to them. Delivery is best-effort fan-out: a failed or blocked
// send removes that subscriber without affecting the others.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int

	logger  *slog.Logger
	metrics *observability.Metrics
	statsFn func() stats.Snapshot
	regions map[string][]string
}

// New creates a hub. statsFn supplies the snapshot for initial and
// status-response messages; regions is the catalog grouping sent to late
// joiners.
func New(logger *slog.Logger, metrics *observability.Metrics, statsFn func() stats.Snapshot, regions map[string][]string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		logger:     logger,
		metrics:    metrics,
		statsFn:    statsFn,
		regions:    regions,
	}
}

// Run drives the hub loop until the context is cancelled, then closes every
// remaining subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.ConnectedClients.Set(float64(len(h.clients)))
			h.logger.Info("dashboard client connected", "client_id", client.id, "client_count", len(h.clients))
			h.sendInitial(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("dashboard client disconnected", "client_id", client.id, "client_count", len(h.clients))
			}

		case message := <-h.broadcast:
			h.fanOut(message)

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// fanOut attempts each send independently; a subscriber whose buffer is full
// or closed is removed so one slow client never stalls the rest.
func (h *Hub) fanOut(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
			h.metrics.BroadcastsSent.Inc()
		default:
			h.metrics.BroadcastFailures.Inc()
			h.logger.Warn("dashboard client send failed, removing", "client_id", client.id)
			h.drop(client)
		}
	}
	h.metrics.ConnectedClients.Set(float64(len(h.clients)))
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.ConnectedClients.Set(float64(len(h.clients)))
}

// sendInitial pushes the connection_established snapshot so a late joiner is
// not blind until the next periodic tick.
func (h *Hub) sendInitial(client *Client) {
	msg := connectionEstablishedMessage{
		Type:           TypeConnectionEstablished,
		Stats:          h.statsFn(),
		LocationsCount: regionLocationCount(h.regions),
		RegionsCovered: h.regions,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal initial snapshot", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		h.drop(client)
	}
}

// BroadcastLiveData enqueues one live_data envelope batching the given
// readings (newest last).
func (h *Hub) BroadcastLiveData(readings []domain.Reading) {
	if len(readings) == 0 {
		return
	}

	locations := make([]LiveLocation, 0, len(readings))
	for _, r := range readings {
		locations = append(locations, LiveLocation{
			Name:             r.Location.Name,
			State:            r.Location.State,
			Lat:              r.Location.Lat,
			Lon:              r.Location.Lon,
			TideLevel:        r.Tide.Level,
			WindSpeed:        r.Weather.WindSpeed,
			Pressure:         r.Weather.Pressure,
			Temperature:      r.Weather.Temperature,
			ThreatIndicators: len(r.Satellite.Threats),
			Priority:         r.Location.Priority,
			Timestamp:        r.Timestamp,
		})
	}

	h.enqueue(liveDataMessage{
		Type:       TypeLiveData,
		Timestamp:  time.Now().UTC(),
		DataPoints: len(locations),
		Locations:  locations,
	})
}

// BroadcastInstantThreat enqueues an instant_threat envelope immediately,
// bypassing the periodic batching.
func (h *Hub) BroadcastInstantThreat(a domain.ThreatAssessment) {
	h.enqueue(instantThreatMessage{
		Type: TypeInstantThreat,
		Data: instantThreatData{
			Location:    a.Reading.Location.Name,
			ThreatLevel: a.Level,
			ThreatType:  a.ThreatType,
			Severity:    a.Severity,
			Factors:     a.Factors,
			Timestamp:   a.EvaluatedAt,
			Lat:         a.Reading.Location.Lat,
			Lon:         a.Reading.Location.Lon,
		},
	})
}

func (h *Hub) enqueue(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("hub broadcast buffer full, dropping message")
	}
}

// ClientCount reports the number of connected subscribers. Blocks until the
// hub loop answers, so only call while Run is active.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	h.count <- reply
	return <-reply
}

func regionLocationCount(regions map[string][]string) int {
	total := 0
	for _, names := range regions {
		total += len(names)
	}
	return total
}
