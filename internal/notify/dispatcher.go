// Package notify fans qualifying alerts out to SMS, email, push, and
// stakeholder channels, with a severity suppression gate in front and a
// per-channel deadline so one stuck gateway never wedges the pipeline.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/observability"
)

// Channel names used in logs, metrics labels, and audit records.
const (
	ChannelSMS          = "sms"
	ChannelEmail        = "email"
	ChannelPush         = "push"
	ChannelStakeholders = "stakeholders"
)

// SMSGateway delivers one text message.
type SMSGateway interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailGateway delivers one email.
type EmailGateway interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PushGateway delivers one push payload to the mobile broker.
type PushGateway interface {
	SendPush(ctx context.Context, alert domain.Alert) error
}

// Recorder persists the audit trail of dispatch attempts. Best-effort: a
// recorder failure is logged but never fails the dispatch.
type Recorder interface {
	RecordDispatch(ctx context.Context, rec Record) error
}

// Record is one audit entry for a dispatch attempt on one channel.
type Record struct {
	AlertID    string    `json:"alert_id"`
	Channel    string    `json:"channel"`
	Outcome    string    `json:"outcome"` // sent, simulated, failed, timeout
	Recipients int       `json:"recipients"`
	Detail     string    `json:"detail,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Dispatcher routes alerts to the configured channels. A nil gateway puts
// that channel in simulation mode: the send is logged and recorded as
// simulated instead of hitting a provider.
type Dispatcher struct {
	sms   SMSGateway
	email EmailGateway
	push  PushGateway

	recorder     Recorder
	contacts     domain.ContactList
	stakeholders []domain.StakeholderGroup

	suppressionThreshold float64
	channelTimeout       time.Duration

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Options carries the dispatch policy and audience configuration.
type Options struct {
	Contacts             domain.ContactList
	Stakeholders         []domain.StakeholderGroup
	SuppressionThreshold float64
	ChannelTimeout       time.Duration
}

// NewDispatcher wires the dispatcher. Any gateway and the recorder may be
// nil.
func NewDispatcher(sms SMSGateway, email EmailGateway, push PushGateway, recorder Recorder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sms:                  sms,
		email:                email,
		push:                 push,
		recorder:             recorder,
		contacts:             opts.Contacts,
		stakeholders:         opts.Stakeholders,
		suppressionThreshold: opts.SuppressionThreshold,
		channelTimeout:       opts.ChannelTimeout,
		logger:               logger,
		metrics:              metrics,
	}
}

// Dispatch runs the suppression gate and, when the alert qualifies, sends on
// all channels concurrently. It returns true when the alert was dispatched
// and false when it was suppressed. Dispatch returns once every channel has
// finished or hit its deadline, so the caller is delayed by at most the
// channel timeout regardless of how many gateways misbehave.
func (d *Dispatcher) Dispatch(ctx context.Context, alert domain.Alert) bool {
	if alert.Severity < d.suppressionThreshold {
		d.metrics.AlertsSuppressed.Inc()
		d.logger.Info("alert suppressed below severity threshold",
			"alert_id", alert.ID,
			"location", alert.Location.Name,
			"severity", alert.Severity,
			"threshold", d.suppressionThreshold)
		return false
	}

	start := time.Now()
	d.logger.Info("dispatching alert",
		"alert_id", alert.ID,
		"location", alert.Location.Name,
		"threat_type", alert.ThreatType,
		"threat_level", alert.Level,
		"severity", alert.Severity)

	channels := []struct {
		name string
		run  func(context.Context, domain.Alert) Record
	}{
		{ChannelSMS, d.dispatchSMS},
		{ChannelEmail, d.dispatchEmail},
		{ChannelPush, d.dispatchPush},
		{ChannelStakeholders, d.dispatchStakeholders},
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runChannel(ctx, ch.name, ch.run, alert)
		}()
	}
	wg.Wait()

	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	return true
}

// runChannel executes one channel under its own deadline and emits the audit
// record. A panic in a gateway is contained to its channel. The channel
// deadline is detached from the caller's cancellation: an in-flight send
// completes or hits its own timeout, never a half-delivered abort on shutdown.
func (d *Dispatcher) runChannel(ctx context.Context, name string, run func(context.Context, domain.Alert) Record, alert domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification channel panicked", "channel", name, "panic", r)
			d.metrics.ChannelSends.WithLabelValues(name, "failed").Inc()
		}
	}()

	base := context.WithoutCancel(ctx)
	chCtx, cancel := context.WithTimeout(base, d.channelTimeout)
	defer cancel()

	done := make(chan Record, 1)
	go func() {
		done <- run(chCtx, alert)
	}()

	var rec Record
	select {
	case rec = <-done:
	case <-chCtx.Done():
		rec = Record{
			AlertID: alert.ID,
			Channel: name,
			Outcome: "timeout",
			Detail:  chCtx.Err().Error(),
			SentAt:  time.Now().UTC(),
		}
		d.logger.Warn("notification channel timed out", "channel", name, "alert_id", alert.ID, "timeout", d.channelTimeout)
	}

	d.metrics.ChannelSends.WithLabelValues(name, rec.Outcome).Inc()
	d.record(base, rec)
}

func (d *Dispatcher) record(ctx context.Context, rec Record) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordDispatch(ctx, rec); err != nil {
		d.logger.Warn("failed to record dispatch", "channel", rec.Channel, "alert_id", rec.AlertID, "error", err)
	}
}

func (d *Dispatcher) dispatchSMS(ctx context.Context, alert domain.Alert) Record {
	rec := Record{AlertID: alert.ID, Channel: ChannelSMS, Recipients: len(d.contacts.SMS), SentAt: time.Now().UTC()}

	if d.sms == nil {
		d.logger.Info("sms gateway not configured, simulating send",
			"alert_id", alert.ID, "recipients", len(d.contacts.SMS))
		rec.Outcome = "simulated"
		return rec
	}

	body := smsBody(alert)
	var failed int
	for _, to := range d.contacts.SMS {
		if err := d.sms.SendSMS(ctx, to, body); err != nil {
			failed++
			d.logger.Warn("sms send failed", "alert_id", alert.ID, "to", to, "error", err)
		}
	}

	rec.Outcome = "sent"
	if failed == len(d.contacts.SMS) && failed > 0 {
		rec.Outcome = "failed"
	}
	if failed > 0 {
		rec.Detail = formatFailureCount(failed, len(d.contacts.SMS))
	}
	return rec
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, alert domain.Alert) Record {
	rec := Record{AlertID: alert.ID, Channel: ChannelEmail, Recipients: len(d.contacts.Email), SentAt: time.Now().UTC()}

	if d.email == nil {
		d.logger.Info("email gateway not configured, simulating send",
			"alert_id", alert.ID, "recipients", len(d.contacts.Email))
		rec.Outcome = "simulated"
		return rec
	}

	subject := emailSubject(alert)
	body := emailBody(alert)
	var failed int
	for _, to := range d.contacts.Email {
		if err := d.email.SendEmail(ctx, to, subject, body); err != nil {
			failed++
			d.logger.Warn("email send failed", "alert_id", alert.ID, "to", to, "error", err)
		}
	}

	rec.Outcome = "sent"
	if failed == len(d.contacts.Email) && failed > 0 {
		rec.Outcome = "failed"
	}
	if failed > 0 {
		rec.Detail = formatFailureCount(failed, len(d.contacts.Email))
	}
	return rec
}

func (d *Dispatcher) dispatchPush(ctx context.Context, alert domain.Alert) Record {
	rec := Record{AlertID: alert.ID, Channel: ChannelPush, Recipients: 1, SentAt: time.Now().UTC()}

	if d.push == nil {
		d.logger.Info("push gateway not configured, simulating send", "alert_id", alert.ID)
		rec.Outcome = "simulated"
		return rec
	}

	if err := d.push.SendPush(ctx, alert); err != nil {
		d.logger.Warn("push send failed", "alert_id", alert.ID, "error", err)
		rec.Outcome = "failed"
		rec.Detail = err.Error()
		return rec
	}
	rec.Outcome = "sent"
	return rec
}

// dispatchStakeholders re-enters the SMS and email gateways once per group,
// with the group's standing actions prepended to the alert it sees.
func (d *Dispatcher) dispatchStakeholders(ctx context.Context, alert domain.Alert) Record {
	rec := Record{AlertID: alert.ID, Channel: ChannelStakeholders, Recipients: len(d.stakeholders), SentAt: time.Now().UTC()}

	if d.sms == nil && d.email == nil {
		d.logger.Info("stakeholder gateways not configured, simulating send",
			"alert_id", alert.ID, "groups", len(d.stakeholders))
		rec.Outcome = "simulated"
		return rec
	}

	var failed int
	for _, group := range d.stakeholders {
		customized := alert.WithPrependedActions(group.Actions)

		if d.sms != nil && group.Phone != "" {
			if err := d.sms.SendSMS(ctx, group.Phone, smsBody(customized)); err != nil {
				failed++
				d.logger.Warn("stakeholder sms failed", "alert_id", alert.ID, "group", group.Name, "error", err)
			}
		}
		if d.email != nil && group.Email != "" {
			subject := emailSubject(customized) + " [" + group.Name + "]"
			if err := d.email.SendEmail(ctx, group.Email, subject, emailBody(customized)); err != nil {
				failed++
				d.logger.Warn("stakeholder email failed", "alert_id", alert.ID, "group", group.Name, "error", err)
			}
		}
	}

	rec.Outcome = "sent"
	if failed > 0 {
		rec.Detail = formatFailureCount(failed, len(d.stakeholders))
	}
	return rec
}
