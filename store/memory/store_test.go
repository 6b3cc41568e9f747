package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
	"github.com/xraph/filer/ledger"
	filerstore "github.com/xraph/filer/store"
)

func ctx() context.Context { return context.Background() }

func tp(t time.Time) *time.Time { return &t }

func newPending(typ catalog.Type) *ledger.Event {
	return &ledger.Event{
		Entity:         entity.New(),
		ID:             id.NewFilingEventID(),
		Type:           typ,
		Subject:        "12345678901",
		PayloadVersion: "S-1.2",
		Payload:        json.RawMessage(`{"eventCode":"S-2200"}`),
		Status:         ledger.StatusPending,
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, filerstore.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
	if err := s.Upsert(ctx(), newPending(catalog.TypeAdmission)); !errors.Is(err, filerstore.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed on upsert, got %v", err)
	}
}

func TestReadsAfterClose(t *testing.T) {
	s := New()
	evt := newPending(catalog.TypeAdmission)
	if err := s.Upsert(ctx(), evt); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	checks := map[string]func() error{
		"GetEvent": func() error { _, err := s.GetEvent(ctx(), evt.ID); return err },
		"GetByProtocol": func() error {
			_, err := s.GetByProtocol(ctx(), "1.2.202510.0000000001")
			return err
		},
		"ListEvents":      func() error { _, err := s.ListEvents(ctx(), ledger.ListOpts{}); return err },
		"CountByStatus":   func() error { _, err := s.CountByStatus(ctx()); return err },
		"GetCredential":   func() error { _, err := s.GetCredential(ctx(), credential.KindCertificate); return err },
		"ListCredentials": func() error { _, err := s.ListCredentials(ctx()); return err },
		"PutCredential":   func() error { return s.PutCredential(ctx(), &credential.Credential{Kind: credential.KindCertificate}) },
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, filerstore.ErrStoreClosed) {
			t.Errorf("%s: expected ErrStoreClosed, got %v", name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

func TestUpsertMergesPartialUpdate(t *testing.T) {
	s := New()
	submitted := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	evt := newPending(catalog.TypeAdmission)
	evt.Status = ledger.StatusSent
	evt.Protocol = "P1"
	evt.SubmittedAt = tp(submitted)
	if err := s.Upsert(ctx(), evt); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(ctx(), &ledger.Event{
		ID:          evt.ID,
		Status:      ledger.StatusProcessed,
		ProcessedAt: tp(submitted.Add(time.Hour)),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != ledger.StatusProcessed {
		t.Fatalf("expected processed, got %s", got.Status)
	}
	if string(got.Payload) != string(evt.Payload) {
		t.Fatal("payload was lost by the partial update")
	}
	if !got.SubmittedAt.Equal(submitted) {
		t.Fatalf("submittedAt changed: %v", got.SubmittedAt)
	}
	if got.Type != catalog.TypeAdmission || got.PayloadVersion != "S-1.2" {
		t.Fatalf("descriptive fields lost: %+v", got)
	}
}

func TestUpsertRejectsInvalidPatch(t *testing.T) {
	s := New()

	evt := newPending(catalog.TypeAdmission)
	evt.Protocol = "P1"
	if err := s.Upsert(ctx(), evt); !errors.Is(err, ledger.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := s.GetEvent(ctx(), evt.ID); !errors.Is(err, ledger.ErrEventNotFound) {
		t.Fatalf("invalid event should not be stored, got %v", err)
	}
}

func TestUpsertRejectsDuplicateProtocol(t *testing.T) {
	s := New()

	a := newPending(catalog.TypeAdmission)
	a.Status, a.Protocol = ledger.StatusSent, "P1"
	if err := s.Upsert(ctx(), a); err != nil {
		t.Fatal(err)
	}

	b := newPending(catalog.TypeTermination)
	b.Status, b.Protocol = ledger.StatusSent, "P1"
	if err := s.Upsert(ctx(), b); !errors.Is(err, ledger.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestGetByProtocol(t *testing.T) {
	s := New()

	evt := newPending(catalog.TypeAdmission)
	if err := s.Upsert(ctx(), evt); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetByProtocol(ctx(), "P1"); !errors.Is(err, ledger.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}

	if err := s.Upsert(ctx(), &ledger.Event{ID: evt.ID, Status: ledger.StatusSent, Protocol: "P1"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetByProtocol(ctx(), "P1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != evt.ID.String() {
		t.Fatalf("wrong event %s", got.ID)
	}
}

func TestReturnedEventsAreCopies(t *testing.T) {
	s := New()

	evt := newPending(catalog.TypeAdmission)
	if err := s.Upsert(ctx(), evt); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetEvent(ctx(), evt.ID)
	got.Status = ledger.StatusProcessed

	again, _ := s.GetEvent(ctx(), evt.ID)
	if again.Status != ledger.StatusPending {
		t.Fatal("mutating a returned event changed the store")
	}
}

func TestListEventsFiltersAndPaginates(t *testing.T) {
	s := New()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		evt := newPending(catalog.TypeAdmission)
		evt.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			evt.Type = catalog.TypeRemuneration
		}
		if err := s.Upsert(ctx(), evt); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListEvents(ctx(), ledger.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 events, got %d", len(all))
	}
	if !all[0].CreatedAt.After(all[4].CreatedAt) {
		t.Fatal("expected newest first")
	}

	rem, _ := s.ListEvents(ctx(), ledger.ListOpts{Type: catalog.TypeRemuneration})
	if len(rem) != 3 {
		t.Fatalf("expected 3 remuneration events, got %d", len(rem))
	}

	page, _ := s.ListEvents(ctx(), ledger.ListOpts{Offset: 4, Limit: 2})
	if len(page) != 1 {
		t.Fatalf("expected 1 event on last page, got %d", len(page))
	}

	none, _ := s.ListEvents(ctx(), ledger.ListOpts{Status: ledger.StatusSent})
	if len(none) != 0 {
		t.Fatalf("expected no sent events, got %d", len(none))
	}
}

func TestCountByStatus(t *testing.T) {
	s := New()

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx(), newPending(catalog.TypeAdmission)); err != nil {
			t.Fatal(err)
		}
	}
	failed := newPending(catalog.TypeAdmission)
	failed.Status, failed.ErrorDetail = ledger.StatusError, "rejected"
	if err := s.Upsert(ctx(), failed); err != nil {
		t.Fatal(err)
	}

	counts, err := s.CountByStatus(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if counts[ledger.StatusPending] != 3 || counts[ledger.StatusError] != 1 || counts[ledger.StatusSent] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestConcurrentUpsertsKeepTerminalState(t *testing.T) {
	s := New()

	evt := newPending(catalog.TypeAdmission)
	evt.Status, evt.Protocol = ledger.StatusSent, "P1"
	if err := s.Upsert(ctx(), evt); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Upsert(ctx(), &ledger.Event{ID: evt.ID, Status: ledger.StatusProcessed})
		}()
		go func() {
			defer wg.Done()
			_ = s.Upsert(ctx(), &ledger.Event{ID: evt.ID, Status: ledger.StatusSent, Protocol: "P1"})
		}()
	}
	wg.Wait()

	got, _ := s.GetEvent(ctx(), evt.ID)
	if got.Status != ledger.StatusProcessed {
		t.Fatalf("stale sent overwrote processed: %s", got.Status)
	}
}

// ──────────────────────────────────────────────────
// credential.Store
// ──────────────────────────────────────────────────

func TestCredentialCRUD(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	if _, err := s.GetCredential(ctx(), credential.KindCertificate); !errors.Is(err, credential.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}

	c := &credential.Credential{
		Entity:     entity.New(),
		ID:         id.NewCredentialID(),
		Kind:       credential.KindCertificate,
		Subject:    "CN=EMPLOYER",
		ValidFrom:  now,
		ValidTo:    now.Add(time.Hour),
		SigningKey: "k",
	}
	if err := s.PutCredential(ctx(), c); err != nil {
		t.Fatal(err)
	}

	replacement := *c
	replacement.ID = id.NewCredentialID()
	replacement.Subject = "CN=RENEWED"
	if err := s.PutCredential(ctx(), &replacement); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetCredential(ctx(), credential.KindCertificate)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "CN=RENEWED" || got.SigningKey != "k" {
		t.Fatalf("unexpected credential %+v", got)
	}

	list, _ := s.ListCredentials(ctx())
	if len(list) != 1 {
		t.Fatalf("expected one credential per kind, got %d", len(list))
	}
}
