package filer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/filer"
	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/payload"
	"github.com/xraph/filer/store/memory"
	"github.com/xraph/filer/submission"
)

const testSubject = "12345678000199"

var now = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func admissionData() payload.Data {
	return payload.Data{
		"worker_tax_id":  "12345678901",
		"worker_name":    "Maria da Silva",
		"birth_date":     "1990-04-12",
		"admission_date": "2025-03-01",
		"category":       "domestic",
		"weekly_hours":   44,
		"salary":         1518.0,
	}
}

func newFiler(t *testing.T, backend submission.Backend, opts ...filer.Option) (*filer.Filer, *memory.Store) {
	t.Helper()
	s := memory.New()
	base := []filer.Option{
		filer.WithStore(s),
		filer.WithSubject(testSubject),
		filer.WithClock(clock),
		filer.WithRateLimit(0, 0),
		filer.WithPollInterval(0),
	}
	if backend != nil {
		base = append(base, filer.WithBackend(backend))
	}
	f, err := filer.New(append(base, opts...)...)
	require.NoError(t, err)
	return f, s
}

func configure(t *testing.T, f *filer.Filer, kinds ...credential.Kind) {
	t.Helper()
	for _, k := range kinds {
		require.NoError(t, f.Credentials().Configure(context.Background(), &credential.Credential{
			Kind:       k,
			Subject:    testSubject,
			ValidFrom:  now.Add(-time.Hour),
			ValidTo:    now.AddDate(0, 0, 365),
			SigningKey: "key",
		}))
	}
}

func TestNewRequiresStore(t *testing.T) {
	_, err := filer.New(filer.WithSubject(testSubject))
	assert.ErrorIs(t, err, filer.ErrNoStore)
}

func TestNewRejectsSimulatedInProduction(t *testing.T) {
	_, err := filer.New(
		filer.WithStore(memory.New()),
		filer.WithSubject(testSubject),
		filer.WithEnvironment(filer.EnvProduction),
		filer.WithBackendMode(submission.ModeSimulated),
	)
	assert.ErrorIs(t, err, filer.ErrSimulatedInProduction)
}

func TestNewSelectsModeOnce(t *testing.T) {
	f, _ := newFiler(t, nil)
	assert.Equal(t, submission.ModeSimulated, f.Mode())

	f, _ = newFiler(t, nil,
		filer.WithBackendMode(submission.ModeReal),
		filer.WithAuthorityURL("https://authority.example"),
	)
	assert.Equal(t, submission.ModeReal, f.Mode())
}

func TestNewEventIsPendingAndUnpersisted(t *testing.T) {
	f, s := newFiler(t, nil)

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, evt.Status)
	assert.Equal(t, "S-1.2", evt.PayloadVersion)
	assert.Equal(t, testSubject, evt.Subject)
	assert.NotEmpty(t, evt.Digest)

	_, err = s.GetEvent(context.Background(), evt.ID)
	assert.ErrorIs(t, err, filer.ErrEventNotFound)
}

func TestNewEventUnsupportedType(t *testing.T) {
	f, _ := newFiler(t, nil)
	_, err := f.NewEvent(catalog.Type("bonus"), payload.Data{})
	assert.ErrorIs(t, err, filer.ErrUnsupportedEventType)
}

func TestPreview(t *testing.T) {
	f, _ := newFiler(t, nil)
	p, err := f.Preview(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	assert.Equal(t, "S-2200", p.Code)
	assert.Contains(t, string(p.Document), `"12345678901"`)

	_, err = f.Preview(catalog.TypeAdmission, payload.Data{"worker_name": "x"})
	assert.ErrorIs(t, err, filer.ErrPayloadValidationFailed)
}

func TestSubmitSimulated(t *testing.T) {
	f, s := newFiler(t, nil, filer.WithSimulation(0.1, 0.5, 42))
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)
	ctx := context.Background()

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	got, err := f.Submit(ctx, evt)
	require.NotNil(t, got)
	require.NotNil(t, got.SubmittedAt)
	if err != nil {
		assert.ErrorIs(t, err, filer.ErrRemoteRejected)
		assert.Equal(t, ledger.StatusError, got.Status)
		assert.NotEmpty(t, got.ErrorDetail)
		assert.Empty(t, got.Protocol)
	} else {
		assert.Equal(t, ledger.StatusSent, got.Status)
		assert.NotEmpty(t, got.Protocol)
		assert.Empty(t, got.ErrorDetail)
	}

	stored, err := s.GetEvent(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Status, stored.Status)
	assert.Equal(t, got.Status, evt.Status)
}

func TestSubmitWithoutPowerOfAttorney(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(0), submission.WithSeed(1))
	f, s := newFiler(t, backend)
	configure(t, f, credential.KindCertificate)
	ctx := context.Background()

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	_, err = f.Submit(ctx, evt)
	assert.ErrorIs(t, err, filer.ErrCredentialsNotConfigured)
	assert.Equal(t, ledger.StatusPending, evt.Status)

	_, err = s.GetEvent(ctx, evt.ID)
	assert.ErrorIs(t, err, filer.ErrEventNotFound)

	submits, _ := backend.Calls()
	assert.Zero(t, submits)
}

func TestSubmitWithExpiredCertificate(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(0), submission.WithSeed(1))
	f, s := newFiler(t, backend)
	configure(t, f, credential.KindPowerOfAttorney)
	require.NoError(t, f.Credentials().Configure(context.Background(), &credential.Credential{
		Kind:      credential.KindCertificate,
		ValidFrom: now.AddDate(-1, 0, 0),
		ValidTo:   now.Add(-time.Minute),
	}))

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	_, err = f.Submit(context.Background(), evt)
	assert.ErrorIs(t, err, filer.ErrCredentialExpired)
	assert.ErrorIs(t, err, filer.ErrCredentialsNotConfigured)
	assert.Equal(t, ledger.StatusPending, evt.Status)

	count, err := s.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count[ledger.StatusPending]+count[ledger.StatusSent]+count[ledger.StatusError])
}

func TestSubmitTwice(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(0), submission.WithSeed(1))
	f, _ := newFiler(t, backend)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)
	ctx := context.Background()

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	pending := *evt

	_, err = f.Submit(ctx, evt)
	require.NoError(t, err)

	_, err = f.Submit(ctx, evt)
	assert.ErrorIs(t, err, filer.ErrAlreadySubmitted)

	// A stale pending copy is caught by the ledger lookup.
	_, err = f.Submit(ctx, &pending)
	assert.ErrorIs(t, err, filer.ErrAlreadySubmitted)

	submits, _ := backend.Calls()
	assert.Equal(t, int64(1), submits)
}

func TestSubmitRejectedRecordsError(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(1), submission.WithSeed(1))
	f, _ := newFiler(t, backend)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)

	got, err := f.File(context.Background(), catalog.TypeAdmission, admissionData())
	require.ErrorIs(t, err, filer.ErrRemoteRejected)
	require.NotNil(t, got)
	assert.Equal(t, ledger.StatusError, got.Status)
	assert.NotEmpty(t, got.ErrorDetail)
	assert.Empty(t, got.Protocol)
	assert.NotNil(t, got.ProcessedAt)
}

func TestQueryStatusProcessedIsFinal(t *testing.T) {
	backend := submission.NewSimulatedBackend(
		submission.WithFailureRate(0),
		submission.WithProcessingRate(1),
		submission.WithSeed(7),
	)
	f, _ := newFiler(t, backend)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)
	ctx := context.Background()

	evt, err := f.File(ctx, catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSent, evt.Status)

	res, err := f.QueryStatus(ctx, evt.Protocol)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusProcessed, res.Status)
	assert.True(t, res.Remote)

	_, queries := backend.Calls()
	require.Equal(t, int64(1), queries)

	res, err = f.QueryStatus(ctx, evt.Protocol)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusProcessed, res.Status)
	assert.False(t, res.Remote)

	_, queries = backend.Calls()
	assert.Equal(t, int64(1), queries)

	stored, err := f.Event(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusProcessed, stored.Status)
	assert.Equal(t, evt.Protocol, stored.Protocol)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestQueryStatusUnknownProtocol(t *testing.T) {
	f, _ := newFiler(t, nil)
	_, err := f.QueryStatus(context.Background(), "1.2.202510.0000000099")
	assert.ErrorIs(t, err, filer.ErrUnknownProtocol)
}

func TestStatsAndListing(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(0), submission.WithSeed(3))
	f, _ := newFiler(t, backend)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)
	ctx := context.Background()

	for range 3 {
		_, err := f.File(ctx, catalog.TypeAdmission, admissionData())
		require.NoError(t, err)
	}

	stats, err := f.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats[ledger.StatusSent])
	assert.Zero(t, stats[ledger.StatusProcessed])

	sent, err := f.EventsByStatus(ctx, ledger.StatusSent)
	require.NoError(t, err)
	assert.Len(t, sent, 3)

	page, err := f.Events(ctx, ledger.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestStartStop(t *testing.T) {
	backend := submission.NewSimulatedBackend(
		submission.WithFailureRate(0),
		submission.WithProcessingRate(1),
		submission.WithSeed(5),
	)
	f, _ := newFiler(t, backend, filer.WithPollInterval(10*time.Millisecond))
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)

	ctx := context.Background()
	evt, err := f.File(ctx, catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	f.Start(ctx)
	defer f.Stop(ctx)

	require.Eventually(t, func() bool {
		got, err := f.Event(ctx, evt.ID)
		return err == nil && got.Status == ledger.StatusProcessed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitCancelledContextRecordsAttempt(t *testing.T) {
	backend := submission.NewSimulatedBackend(submission.WithFailureRate(0), submission.WithSeed(1))
	f, s := newFiler(t, backend)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Submit(ctx, evt)
	require.Error(t, err)
	if errors.Is(err, filer.ErrTransport) {
		stored, getErr := s.GetEvent(context.Background(), evt.ID)
		require.NoError(t, getErr)
		assert.Equal(t, ledger.StatusError, stored.Status)
	}
}

func TestRestartOverSameStoreKeepsProtocolsUnique(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	open := func() *filer.Filer {
		f, err := filer.New(
			filer.WithStore(s),
			filer.WithSubject(testSubject),
			filer.WithClock(clock),
			filer.WithRateLimit(0, 0),
			filer.WithPollInterval(0),
			filer.WithSimulation(0, 1, 11),
		)
		require.NoError(t, err)
		return f
	}

	first := open()
	configure(t, first, credential.KindCertificate, credential.KindPowerOfAttorney)
	old, err := first.File(ctx, catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSent, old.Status)

	// Same seed, same store: a restarted process.
	second := open()
	evt, err := second.File(ctx, catalog.TypeAdmission, admissionData())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSent, evt.Status)
	assert.NotEqual(t, old.Protocol, evt.Protocol)

	recorded, err := second.Event(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, evt.Protocol, recorded.Protocol)

	res, err := second.QueryStatus(ctx, old.Protocol)
	require.NoError(t, err)
	assert.Equal(t, old.ID, res.EventID)
	assert.Equal(t, ledger.StatusProcessed, res.Status)

	untouched, err := second.Event(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSent, untouched.Status)
}

var errDiskFull = errors.New("disk full")

type failingUpsertStore struct {
	*memory.Store
}

func (s failingUpsertStore) Upsert(context.Context, *ledger.Event) error { return errDiskFull }

func TestSubmitAcceptedButNotRecordedReportsProtocol(t *testing.T) {
	s := failingUpsertStore{Store: memory.New()}
	f, err := filer.New(
		filer.WithStore(s),
		filer.WithSubject(testSubject),
		filer.WithClock(clock),
		filer.WithRateLimit(0, 0),
		filer.WithPollInterval(0),
		filer.WithSimulation(0, 0, 1),
	)
	require.NoError(t, err)
	configure(t, f, credential.KindCertificate, credential.KindPowerOfAttorney)

	evt, err := f.NewEvent(catalog.TypeAdmission, admissionData())
	require.NoError(t, err)

	_, err = f.Submit(context.Background(), evt)
	require.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "accepted with protocol 1.2.")
	assert.Contains(t, err.Error(), evt.ID.String())
}
