package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/signature"
)

const maxResponseBody = 64 << 10

// CredentialSource supplies the certificate requests are signed with.
// *credential.Service satisfies it.
type CredentialSource interface {
	Current(ctx context.Context) (credential.Set, error)
}

// RealBackend submits to the filing authority over HTTPS.
type RealBackend struct {
	baseURL string
	subject string
	client  *http.Client
	creds   CredentialSource
	now     func() time.Time
	logger  *slog.Logger
}

// RealOption configures a RealBackend.
type RealOption func(*RealBackend)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) RealOption {
	return func(b *RealBackend) { b.client = c }
}

// WithRealLogger sets the logger.
func WithRealLogger(l *slog.Logger) RealOption {
	return func(b *RealBackend) { b.logger = l }
}

// WithRealClock overrides the clock used for signature timestamps.
func WithRealClock(now func() time.Time) RealOption {
	return func(b *RealBackend) { b.now = now }
}

// NewRealBackend creates a backend for the authority at baseURL, filing on
// behalf of subject. timeout bounds each call in addition to the caller's
// context.
func NewRealBackend(baseURL, subject string, timeout time.Duration, creds CredentialSource, opts ...RealOption) *RealBackend {
	b := &RealBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		subject: subject,
		client:  &http.Client{Timeout: timeout},
		creds:   creds,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode implements Backend.
func (b *RealBackend) Mode() Mode { return ModeReal }

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Protocol string `json:"protocol,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Submit implements Backend. It makes exactly one HTTP call.
func (b *RealBackend) Submit(ctx context.Context, req *Request) (*Receipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out submitResponse
	status, err := b.do(ctx, http.MethodPost, b.baseURL+"/v1/events", body, &out)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 500:
		return nil, transportError("submit", fmt.Errorf("authority returned HTTP %d", status))
	case out.Accepted && out.Protocol != "":
		return &Receipt{Protocol: out.Protocol, ReceivedAt: b.now().UTC()}, nil
	case out.Accepted:
		return nil, transportError("submit", fmt.Errorf("accepted without protocol"))
	default:
		reason := out.Reason
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", status)
		}
		b.logger.WarnContext(ctx, "submission rejected",
			"event_id", req.EventID.String(),
			"reason", reason,
		)
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, reason)
	}
}

// QueryStatus implements Backend. It makes exactly one HTTP call.
func (b *RealBackend) QueryStatus(ctx context.Context, protocol string) (*StatusResult, error) {
	var out statusResponse
	status, err := b.do(ctx, http.MethodGet, b.baseURL+"/v1/protocols/"+url.PathEscape(protocol), nil, &out)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, protocol)
	case status >= 300:
		return nil, transportError("query status", fmt.Errorf("authority returned HTTP %d", status))
	}

	st := ledger.Status(out.Status)
	if st != ledger.StatusSent && st != ledger.StatusProcessed && st != ledger.StatusError {
		return nil, transportError("query status", fmt.Errorf("unexpected status %q", out.Status))
	}
	return &StatusResult{Protocol: protocol, Status: st, Detail: out.Detail}, nil
}

// do performs one signed request and decodes a JSON body into out when
// present. Only network failures are returned as errors.
func (b *RealBackend) do(ctx context.Context, method, target string, body []byte, out any) (int, error) {
	set, err := b.creds.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("load credentials: %w", err)
	}
	cert := set.Certificate
	if cert == nil {
		return 0, fmt.Errorf("%w: missing %s", credential.ErrCredentialsNotConfigured, credential.KindCertificate)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Filer/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	signature.SignRequest(req, body, signature.Credentials{
		Subject:      b.subject,
		SerialNumber: cert.SerialNumber,
		Key:          cert.SigningKey,
	}, b.now())

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, transportError(strings.ToLower(method)+" "+req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, transportError("read response", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, transportError("decode response", err)
		}
	}
	return resp.StatusCode, nil
}
