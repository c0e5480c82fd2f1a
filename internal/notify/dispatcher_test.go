package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/notify"
	"github.com/couchcryptid/coastal-threat-service/internal/observability"
)

type smsCall struct {
	to   string
	body string
}

type fakeSMS struct {
	mu    sync.Mutex
	calls []smsCall
	err   error
	delay time.Duration
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, smsCall{to: to, body: body})
	f.mu.Unlock()
	return f.err
}

func (f *fakeSMS) sent() []smsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]smsCall(nil), f.calls...)
}

type emailCall struct {
	to      string
	subject string
	body    string
}

type fakeEmail struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	f.calls = append(f.calls, emailCall{to: to, subject: subject, body: body})
	f.mu.Unlock()
	return f.err
}

func (f *fakeEmail) sent() []emailCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emailCall(nil), f.calls...)
}

type fakePush struct {
	mu    sync.Mutex
	count int
	delay time.Duration
	err   error
}

func (f *fakePush) SendPush(ctx context.Context, alert domain.Alert) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	return f.err
}

// hangingPush ignores cancellation entirely, modelling a gateway client that
// blocks in I/O past any deadline.
type hangingPush struct {
	block time.Duration
}

func (h *hangingPush) SendPush(ctx context.Context, alert domain.Alert) error {
	time.Sleep(h.block)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []notify.Record
	err     error
}

func (f *fakeRecorder) RecordDispatch(ctx context.Context, rec notify.Record) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	return f.err
}

func (f *fakeRecorder) byChannel() map[string]notify.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]notify.Record, len(f.records))
	for _, rec := range f.records {
		out[rec.Channel] = rec
	}
	return out
}

func testAlert(severity float64) domain.Alert {
	return domain.NewAlert(domain.ThreatAssessment{
		Reading: domain.Reading{
			Location:  domain.Location{Name: "Chennai", State: "Tamil Nadu", Priority: domain.PriorityHigh},
			Timestamp: time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC),
			Tide:      domain.TideReading{Level: 4.2},
			Weather:   domain.WeatherReading{WindSpeed: 65, Pressure: 980},
		},
		Level:      domain.LevelCritical,
		ThreatType: domain.ThreatSevereSurge,
		Severity:   severity,
		Confidence: 0.9,
	})
}

func testOptions() notify.Options {
	return notify.Options{
		Contacts: domain.ContactList{
			SMS:   []string{"+911234500001", "+911234500002"},
			Email: []string{"ops@coastal.example"},
		},
		Stakeholders: []domain.StakeholderGroup{
			{Name: "Coast Guard", Phone: "+911234500010", Email: "guard@coastal.example", Actions: []string{"Prepare rescue operations"}},
			{Name: "Port Authorities", Phone: "+911234500011", Email: "ports@coastal.example", Actions: []string{"Suspend port operations"}},
		},
		SuppressionThreshold: 0.4,
		ChannelTimeout:       2 * time.Second,
	}
}

func newDispatcher(sms notify.SMSGateway, email notify.EmailGateway, push notify.PushGateway, rec notify.Recorder, opts notify.Options) *notify.Dispatcher {
	return notify.NewDispatcher(sms, email, push, rec,
		opts, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
}

func TestDispatchSuppressesBelowThreshold(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	rec := &fakeRecorder{}
	d := newDispatcher(sms, email, nil, rec, testOptions())

	dispatched := d.Dispatch(context.Background(), testAlert(0.35))

	assert.False(t, dispatched)
	assert.Empty(t, sms.sent())
	assert.Empty(t, email.sent())
	assert.Empty(t, rec.byChannel())
}

func TestDispatchSendsOnAllChannels(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	push := &fakePush{}
	rec := &fakeRecorder{}
	d := newDispatcher(sms, email, push, rec, testOptions())

	dispatched := d.Dispatch(context.Background(), testAlert(0.8))
	require.True(t, dispatched)

	// 2 general contacts + 2 stakeholder phones.
	assert.Len(t, sms.sent(), 4)
	// 1 general contact + 2 stakeholder addresses.
	assert.Len(t, email.sent(), 3)
	assert.Equal(t, 1, push.count)

	byChannel := rec.byChannel()
	require.Len(t, byChannel, 4)
	for _, channel := range []string{notify.ChannelSMS, notify.ChannelEmail, notify.ChannelPush, notify.ChannelStakeholders} {
		assert.Equal(t, "sent", byChannel[channel].Outcome, channel)
	}
}

func TestDispatchStakeholdersGetPrependedActions(t *testing.T) {
	email := &fakeEmail{}
	d := newDispatcher(nil, email, nil, nil, testOptions())

	require.True(t, d.Dispatch(context.Background(), testAlert(0.8)))

	var guardBody string
	for _, call := range email.sent() {
		if call.to == "guard@coastal.example" {
			guardBody = call.body
			assert.Contains(t, call.subject, "Coast Guard")
		}
	}
	require.NotEmpty(t, guardBody, "coast guard email not sent")
	assert.Contains(t, guardBody, "Prepare rescue operations")
	assert.NotContains(t, guardBody, "Suspend port operations")

	// General contact emails carry only the base recommendations.
	for _, call := range email.sent() {
		if call.to == "ops@coastal.example" {
			assert.NotContains(t, call.body, "Prepare rescue operations")
		}
	}
}

func TestDispatchSimulatesUnconfiguredGateways(t *testing.T) {
	rec := &fakeRecorder{}
	d := newDispatcher(nil, nil, nil, rec, testOptions())

	require.True(t, d.Dispatch(context.Background(), testAlert(0.8)))

	byChannel := rec.byChannel()
	require.Len(t, byChannel, 4)
	for channel, record := range byChannel {
		assert.Equal(t, "simulated", record.Outcome, channel)
	}
}

func TestDispatchBoundsStuckChannel(t *testing.T) {
	opts := testOptions()
	opts.ChannelTimeout = 200 * time.Millisecond

	// Push hangs well past the channel deadline; the other channels are fast.
	sms := &fakeSMS{}
	email := &fakeEmail{}
	push := &hangingPush{block: 10 * time.Second}
	rec := &fakeRecorder{}
	d := newDispatcher(sms, email, push, rec, opts)

	start := time.Now()
	dispatched := d.Dispatch(context.Background(), testAlert(0.8))
	elapsed := time.Since(start)

	require.True(t, dispatched)
	assert.Less(t, elapsed, 2*time.Second, "dispatch must not wait out the stuck gateway")

	byChannel := rec.byChannel()
	assert.Equal(t, "timeout", byChannel[notify.ChannelPush].Outcome)
	assert.Equal(t, "sent", byChannel[notify.ChannelSMS].Outcome)
	assert.Equal(t, "sent", byChannel[notify.ChannelEmail].Outcome)
	assert.Equal(t, "sent", byChannel[notify.ChannelStakeholders].Outcome)
}

func TestDispatchFinishesInFlightSendsAfterCancel(t *testing.T) {
	// Shutting the orchestrator down mid-dispatch must not abort sends that
	// are already running; only the per-channel deadline bounds them.
	sms := &fakeSMS{delay: 300 * time.Millisecond}
	email := &fakeEmail{}
	rec := &fakeRecorder{}
	d := newDispatcher(sms, email, nil, rec, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	require.True(t, d.Dispatch(ctx, testAlert(0.8)))

	// 2 general contacts + 2 stakeholder phones, all delivered after cancel.
	assert.Len(t, sms.sent(), 4)

	byChannel := rec.byChannel()
	require.Len(t, byChannel, 4)
	assert.Equal(t, "sent", byChannel[notify.ChannelSMS].Outcome)
	assert.Equal(t, "sent", byChannel[notify.ChannelStakeholders].Outcome)
}

func TestDispatchAllSendsFailedMarksChannelFailed(t *testing.T) {
	sms := &fakeSMS{err: errors.New("gateway unreachable")}
	rec := &fakeRecorder{}
	d := newDispatcher(sms, nil, nil, rec, testOptions())

	require.True(t, d.Dispatch(context.Background(), testAlert(0.8)))

	byChannel := rec.byChannel()
	assert.Equal(t, "failed", byChannel[notify.ChannelSMS].Outcome)
	assert.Contains(t, byChannel[notify.ChannelSMS].Detail, "2 of 2")
}

func TestDispatchRecorderFailureIsNonFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database down")}
	d := newDispatcher(nil, nil, nil, rec, testOptions())

	assert.True(t, d.Dispatch(context.Background(), testAlert(0.8)))
}
