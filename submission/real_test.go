package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/signature"
	"github.com/xraph/filer/submission"
)

type staticCreds struct {
	set credential.Set
	err error
}

func (s staticCreds) Current(context.Context) (credential.Set, error) { return s.set, s.err }

const signingKey = "fsk_test_key"

func validCreds() staticCreds {
	now := time.Now()
	return staticCreds{set: credential.Set{
		Certificate: &credential.Credential{
			Kind:         credential.KindCertificate,
			SerialNumber: "BEEF",
			ValidFrom:    now.Add(-time.Hour),
			ValidTo:      now.Add(time.Hour),
			SigningKey:   signingKey,
		},
	}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRealSubmitAccepted(t *testing.T) {
	var calls atomic.Int32
	var gotReq submission.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/v1/events" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := signature.VerifyRequest(r, body, signingKey, time.Now(), time.Minute); err != nil {
			t.Errorf("signature: %v", err)
		}
		if r.Header.Get(signature.HeaderSubject) != "12345678901" {
			t.Errorf("unexpected subject %q", r.Header.Get(signature.HeaderSubject))
		}
		_ = json.Unmarshal(body, &gotReq)
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "protocol": "1.2.202510.0000000042"})
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", 5*time.Second, validCreds())
	req := newRequest()

	r, err := b.Submit(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if r.Protocol != "1.2.202510.0000000042" {
		t.Fatalf("unexpected protocol %q", r.Protocol)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}
	if gotReq.EventID.String() != req.EventID.String() || gotReq.Digest != req.Digest {
		t.Fatalf("request body mismatch: %+v", gotReq)
	}
}

func TestRealSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"accepted": false, "reason": "invalid worker tax id"})
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", 5*time.Second, validCreds())

	_, err := b.Submit(context.Background(), newRequest())
	if !errors.Is(err, submission.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
	if err.Error() != "filer: remote rejected: invalid worker tax id" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRealSubmitServerErrorIsTransport(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", 5*time.Second, validCreds())

	_, err := b.Submit(context.Background(), newRequest())
	if !errors.Is(err, submission.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries, got %d calls", calls.Load())
	}
}

func TestRealSubmitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", 5*time.Second, validCreds())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.Submit(ctx, newRequest())
	if !errors.Is(err, submission.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestRealSubmitWithoutCertificate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", time.Second, staticCreds{})

	_, err := b.Submit(context.Background(), newRequest())
	if !errors.Is(err, credential.ErrCredentialsNotConfigured) {
		t.Fatalf("expected ErrCredentialsNotConfigured, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("no request should be made without a certificate")
	}
}

func TestRealQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/protocols/P1":
			writeJSON(w, http.StatusOK, map[string]any{"status": "processed", "detail": "ok"})
		case "/v1/protocols/P2":
			writeJSON(w, http.StatusOK, map[string]any{"status": "archived"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := submission.NewRealBackend(srv.URL, "12345678901", time.Second, validCreds())
	ctx := context.Background()

	st, err := b.QueryStatus(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != ledger.StatusProcessed || st.Detail != "ok" || st.Protocol != "P1" {
		t.Fatalf("unexpected result %+v", st)
	}

	if _, err := b.QueryStatus(ctx, "P2"); !errors.Is(err, submission.ErrTransport) {
		t.Fatalf("expected ErrTransport for unknown status, got %v", err)
	}
	if _, err := b.QueryStatus(ctx, "P3"); !errors.Is(err, submission.ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
}
