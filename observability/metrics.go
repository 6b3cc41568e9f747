package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for the filer, backed by any go-utils
// MetricFactory (e.g. the forge-managed metrics system via fapp.Metrics()).
// A nil *Metrics records nothing.
type Metrics struct {
	SubmissionsTotal     gu.Counter
	SubmissionLatency    gu.Histogram
	PollsTotal           gu.Counter
	PollLatency          gu.Histogram
	CredentialRejections gu.Counter
	AwaitingProcessing   gu.Gauge
}

// NewMetrics creates filer metric instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		SubmissionsTotal:     factory.Counter("filer_submissions_total"),
		SubmissionLatency:    factory.Histogram("filer_submission_latency_seconds"),
		PollsTotal:           factory.Counter("filer_status_polls_total"),
		PollLatency:          factory.Histogram("filer_status_poll_latency_seconds"),
		CredentialRejections: factory.Counter("filer_credential_rejections_total"),
		AwaitingProcessing:   factory.Gauge("filer_events_awaiting_processing"),
	}
}

// RecordSubmission records one submission attempt. outcome is the status the
// event reached ("sent" or "error").
func (m *Metrics) RecordSubmission(mode, outcome string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabels(map[string]string{"mode": mode, "outcome": outcome}).Inc()
	m.SubmissionLatency.Observe(latencySeconds)
	if outcome == "sent" {
		m.AwaitingProcessing.Inc()
	}
}

// RecordPoll records one remote status query. status is the authority's
// answer, or "transport_error".
func (m *Metrics) RecordPoll(status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.PollLatency.Observe(latencySeconds)
}

// RecordTerminal marks one sent event as having reached a terminal state.
func (m *Metrics) RecordTerminal() {
	if m == nil {
		return
	}
	m.AwaitingProcessing.Dec()
}

// RecordCredentialRejection counts a submission refused by the credential gate.
func (m *Metrics) RecordCredentialRejection() {
	if m == nil {
		return
	}
	m.CredentialRejections.Inc()
}

// SetAwaiting resets the awaiting gauge, e.g. from ledger counts at startup.
func (m *Metrics) SetAwaiting(n int64) {
	if m == nil {
		return
	}
	m.AwaitingProcessing.Set(float64(n))
}
