package mongo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
	"github.com/xraph/filer/ledger"
)

// truncated returns evt with every time cut to BSON datetime precision.
func truncated(evt *ledger.Event) *ledger.Event {
	out := *evt
	out.CreatedAt = msTime(evt.CreatedAt)
	out.UpdatedAt = msTime(evt.UpdatedAt)
	out.SubmittedAt = msTimePtr(evt.SubmittedAt)
	out.ProcessedAt = msTimePtr(evt.ProcessedAt)
	return &out
}

func TestEventModelRoundTrip(t *testing.T) {
	for name, evt := range sampleEvents() {
		t.Run(name, func(t *testing.T) {
			m := toEventModel(evt)
			m.Revision = 3

			raw, err := bson.Marshal(m)
			require.NoError(t, err)

			var decoded eventModel
			require.NoError(t, bson.Unmarshal(raw, &decoded))
			assert.Equal(t, int64(3), decoded.Revision)

			got, err := fromEventModel(&decoded)
			require.NoError(t, err)
			assertSameEvent(t, truncated(evt), got)

			// A second pass is lossless.
			again, err := fromEventModel(toEventModel(got))
			require.NoError(t, err)
			assertSameEvent(t, got, again)
		})
	}
}

func TestEventModelTruncatesToMilliseconds(t *testing.T) {
	evt := sampleEvents()["processed"]
	m := toEventModel(evt)

	assert.Equal(t, 123000000, m.CreatedAt.Nanosecond())
	assert.Equal(t, 123000000, m.ProcessedAt.Nanosecond())
	assert.Equal(t, 123456789, evt.ProcessedAt.Nanosecond(), "input left untouched")
}

func TestCredentialModelRoundTrip(t *testing.T) {
	c := sampleCredential()

	raw, err := bson.Marshal(toCredentialModel(c))
	require.NoError(t, err)

	var decoded credentialModel
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, string(c.Kind), decoded.Kind)

	got, err := fromCredentialModel(&decoded)
	require.NoError(t, err)

	want := *c
	want.ValidFrom = msTime(c.ValidFrom)
	want.ValidTo = msTime(c.ValidTo)
	want.CreatedAt = msTime(c.CreatedAt)
	want.UpdatedAt = msTime(c.UpdatedAt)
	assertSameCredential(t, &want, got)
}

func sampleEvents() map[string]*ledger.Event {
	created := time.Date(2025, 10, 1, 12, 0, 0, 123456789, time.UTC)
	submitted := created.Add(time.Minute)
	processed := created.Add(time.Hour)
	base := func() *ledger.Event {
		return &ledger.Event{
			Entity:         entity.Entity{CreatedAt: created, UpdatedAt: created},
			ID:             id.NewFilingEventID(),
			Type:           catalog.TypeAdmission,
			Subject:        "12345678000199",
			PayloadVersion: "S-1.2",
			Payload:        json.RawMessage(`{"eventCode":"S-2200","worker":{"name":"Maria"}}`),
			Digest:         "9f86d081884c7d65",
			Status:         ledger.StatusPending,
		}
	}

	pending := base()
	pending.Payload = nil
	pending.Digest = ""

	sent := base()
	sent.Status = ledger.StatusSent
	sent.Protocol = "1.2.202510.01k6g3x7m2d4r9q8w5z0c1v2b3"
	sent.SubmittedAt = &submitted
	sent.StatusDetail = "received"
	sent.UpdatedAt = submitted

	done := base()
	done.Status = ledger.StatusProcessed
	done.Protocol = "1.2.202510.01k6g3x7m2d4r9q8w5z0c1v2b4"
	done.SubmittedAt = &submitted
	done.ProcessedAt = &processed
	done.StatusDetail = "event processed successfully"
	done.UpdatedAt = processed

	failed := base()
	failed.Status = ledger.StatusError
	failed.SubmittedAt = &submitted
	failed.ProcessedAt = &submitted
	failed.ErrorDetail = "filer: remote rejected: worker tax id not registered"
	failed.UpdatedAt = submitted

	return map[string]*ledger.Event{
		"pending without payload": pending,
		"sent":                    sent,
		"processed":               done,
		"error without protocol":  failed,
	}
}

func assertTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.WithinDuration(t, *want, *got, 0)
}

func assertSameEvent(t *testing.T, want, got *ledger.Event) {
	t.Helper()
	assert.Equal(t, want.ID.String(), got.ID.String())
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Subject, got.Subject)
	assert.Equal(t, want.PayloadVersion, got.PayloadVersion)
	assert.Equal(t, want.Payload, got.Payload)
	assert.Equal(t, want.Digest, got.Digest)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Protocol, got.Protocol)
	assert.Equal(t, want.ErrorDetail, got.ErrorDetail)
	assert.Equal(t, want.StatusDetail, got.StatusDetail)
	assertTime(t, want.SubmittedAt, got.SubmittedAt)
	assertTime(t, want.ProcessedAt, got.ProcessedAt)
	assertTime(t, &want.CreatedAt, &got.CreatedAt)
	assertTime(t, &want.UpdatedAt, &got.UpdatedAt)
}

func sampleCredential() *credential.Credential {
	now := time.Date(2025, 10, 1, 12, 0, 0, 987654321, time.UTC)
	return &credential.Credential{
		Entity:       entity.Entity{CreatedAt: now, UpdatedAt: now},
		ID:           id.NewCredentialID(),
		Kind:         credential.KindCertificate,
		Subject:      "12345678000199",
		Issuer:       "AC Teste",
		SerialNumber: "0a1b2c",
		ValidFrom:    now.Add(-time.Hour),
		ValidTo:      now.AddDate(1, 0, 0),
		SigningKey:   "secret",
	}
}

func assertSameCredential(t *testing.T, want, got *credential.Credential) {
	t.Helper()
	assert.Equal(t, want.ID.String(), got.ID.String())
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Subject, got.Subject)
	assert.Equal(t, want.Issuer, got.Issuer)
	assert.Equal(t, want.SerialNumber, got.SerialNumber)
	assert.Equal(t, want.SigningKey, got.SigningKey)
	assertTime(t, &want.ValidFrom, &got.ValidFrom)
	assertTime(t, &want.ValidTo, &got.ValidTo)
	assertTime(t, &want.CreatedAt, &got.CreatedAt)
	assertTime(t, &want.UpdatedAt, &got.UpdatedAt)
}
