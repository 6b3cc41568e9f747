package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph/filer"
	"github.com/xraph/filer/api"
	"github.com/xraph/filer/store/memory"
	"github.com/xraph/filer/submission"
)

// testServer creates a Handler backed by a memory store and a simulated
// backend that accepts everything and finishes on the first query.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	f, err := filer.New(
		filer.WithStore(memory.New()),
		filer.WithSubject("12345678000199"),
		filer.WithPollInterval(0),
		filer.WithRateLimit(0, 0),
		filer.WithBackend(submission.NewSimulatedBackend(
			submission.WithFailureRate(0),
			submission.WithProcessingRate(1),
			submission.WithSeed(1),
		)),
	)
	if err != nil {
		t.Fatalf("new filer: %v", err)
	}

	h := api.NewHandler(f, slog.Default())
	return httptest.NewServer(h)
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func configureCredentials(t *testing.T, srvURL string, kinds ...string) {
	t.Helper()
	now := time.Now().UTC()
	for _, kind := range kinds {
		resp := doJSON(t, "PUT", srvURL+"/credentials/"+kind, map[string]any{
			"subject":     "12345678000199",
			"issuer":      "Test CA",
			"valid_from":  now.Add(-time.Hour).Format(time.RFC3339),
			"valid_to":    now.AddDate(1, 0, 0).Format(time.RFC3339),
			"signing_key": "secret",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("configure %s: expected 200, got %d", kind, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func admissionBody() map[string]any {
	return map[string]any{
		"event_type": "admission",
		"data": map[string]any{
			"worker_tax_id":  "123.456.789-01",
			"worker_name":    "Maria da Silva",
			"birth_date":     "1990-04-12",
			"admission_date": "2025-03-01",
			"category":       "domestic",
			"weekly_hours":   44,
			"salary":         1518,
		},
	}
}

// --- Catalog ---

func TestCatalog(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/catalog", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var defs []map[string]any
	decodeBody(t, resp, &defs)
	if len(defs) != 6 {
		t.Fatalf("expected 6 event types, got %d", len(defs))
	}

	resp = doJSON(t, "GET", srv.URL+"/catalog?group=payroll", nil)
	decodeBody(t, resp, &defs)
	if len(defs) != 2 {
		t.Fatalf("expected 2 payroll types, got %d", len(defs))
	}

	resp = doJSON(t, "GET", srv.URL+"/catalog/admission", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var def map[string]any
	decodeBody(t, resp, &def)
	if def["code"] != "S-2200" {
		t.Fatalf("expected code S-2200, got %v", def["code"])
	}

	resp = doJSON(t, "GET", srv.URL+"/catalog/bonus", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown type: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPreview(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/preview", admissionBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", resp.StatusCode)
	}
	var p map[string]any
	decodeBody(t, resp, &p)
	if p["schema_version"] != "S-1.2" {
		t.Fatalf("expected schema_version S-1.2, got %v", p["schema_version"])
	}
	if p["digest"] == "" {
		t.Fatal("expected digest")
	}

	resp = doJSON(t, "POST", srv.URL+"/preview", map[string]any{
		"event_type": "admission",
		"data":       map[string]any{"worker_name": "x"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid data: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "POST", srv.URL+"/preview", map[string]any{
		"event_type": "bonus",
		"data":       map[string]any{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported type: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Events ---

func TestFileWithoutCredentials(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/events", admissionBody())
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/events", nil)
	var events []map[string]any
	decodeBody(t, resp, &events)
	if len(events) != 0 {
		t.Fatalf("expected empty ledger, got %d events", len(events))
	}
}

func TestFileAndTrack(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	configureCredentials(t, srv.URL, "certificate", "power_of_attorney")

	resp := doJSON(t, "GET", srv.URL+"/credentials/check", nil)
	var check map[string]any
	decodeBody(t, resp, &check)
	if check["allowed"] != true {
		t.Fatalf("expected submissions allowed, got %v", check)
	}

	resp = doJSON(t, "POST", srv.URL+"/events", admissionBody())
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("file: expected 202, got %d", resp.StatusCode)
	}
	var filed struct {
		Event map[string]any `json:"event"`
	}
	decodeBody(t, resp, &filed)
	if filed.Event["status"] != "sent" {
		t.Fatalf("expected sent, got %v", filed.Event["status"])
	}
	evtID, _ := filed.Event["id"].(string)
	protocol, _ := filed.Event["protocol"].(string)
	if evtID == "" || protocol == "" {
		t.Fatalf("expected id and protocol, got %v", filed.Event)
	}

	// Get
	resp = doJSON(t, "GET", srv.URL+"/events/"+evtID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Status query reaches processed.
	resp = doJSON(t, "GET", srv.URL+"/protocols/"+protocol, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}
	var status map[string]any
	decodeBody(t, resp, &status)
	if status["status"] != "processed" {
		t.Fatalf("expected processed, got %v", status["status"])
	}

	// List by status
	resp = doJSON(t, "GET", srv.URL+"/events?status=processed", nil)
	var events []map[string]any
	decodeBody(t, resp, &events)
	if len(events) != 1 {
		t.Fatalf("expected 1 processed event, got %d", len(events))
	}

	// Stats
	resp = doJSON(t, "GET", srv.URL+"/stats", nil)
	var stats struct {
		Counts          map[string]int64 `json:"counts"`
		Total           int64            `json:"total"`
		Mode            string           `json:"backend_mode"`
		SubmissionReady bool             `json:"submission_ready"`
	}
	decodeBody(t, resp, &stats)
	if stats.Total != 1 || stats.Counts["processed"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Mode != "simulated" || !stats.SubmissionReady {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestEventNotFound(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/events/not-an-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/protocols/1.2.202510.0000000001", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown protocol: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/events?status=archived", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Credentials ---

func TestCredentials(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "PUT", srv.URL+"/credentials/badge", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "PUT", srv.URL+"/credentials/certificate", map[string]any{"subject": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing validity: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "PUT", srv.URL+"/credentials/power_of_attorney", map[string]any{"pem": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("pem for attorney: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	configureCredentials(t, srv.URL, "certificate")

	resp = doJSON(t, "GET", srv.URL+"/credentials/check", nil)
	var check map[string]any
	decodeBody(t, resp, &check)
	if check["allowed"] != false || check["reason"] == "" {
		t.Fatalf("expected blocked with reason, got %v", check)
	}

	resp = doJSON(t, "GET", srv.URL+"/credentials", nil)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("signing key leaked: %s", raw)
	}
	var creds []map[string]any
	if err := json.Unmarshal(raw, &creds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(creds) != 1 || creds[0]["kind"] != "certificate" {
		t.Fatalf("unexpected credentials: %v", creds)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), "POST", srv.URL+"/events", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
