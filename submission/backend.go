// Package submission delivers rendered events to the filing authority and
// queries their processing status. Two interchangeable backends implement
// the same contract: RealBackend talks to the authority over HTTP and
// SimulatedBackend answers locally.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/ledger"
)

var (
	// ErrTransport is returned for network failures and timeouts on either
	// remote call. Nothing is retried.
	ErrTransport = errors.New("filer: transport error")

	// ErrRemoteRejected is returned when the authority refuses a payload.
	ErrRemoteRejected = errors.New("filer: remote rejected")

	// ErrUnknownProtocol is returned when a status query names a receipt the
	// authority (or the ledger) does not know.
	ErrUnknownProtocol = errors.New("filer: unknown protocol")

	// ErrInvalidMode is returned for a backend mode other than real or simulated.
	ErrInvalidMode = errors.New("filer: invalid backend mode")
)

// Mode selects the backend implementation.
type Mode string

// Backend modes.
const (
	ModeReal      Mode = "real"
	ModeSimulated Mode = "simulated"
)

// ParseMode validates a configured backend mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReal, ModeSimulated:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Request is one submission of a rendered payload.
type Request struct {
	EventID       id.ID           `json:"event_id"`
	EventType     catalog.Type    `json:"event_type"`
	Code          string          `json:"code"`
	SchemaVersion string          `json:"schema_version"`
	Environment   string          `json:"environment"`
	Subject       string          `json:"subject"`
	Digest        string          `json:"digest"`
	Document      json.RawMessage `json:"document"`
}

// Receipt is the authority's acknowledgement of an accepted submission.
type Receipt struct {
	Protocol   string    `json:"protocol"`
	ReceivedAt time.Time `json:"received_at"`
}

// StatusResult is the processing state of a submission as reported by the
// authority. Status is one of sent, processed or error.
type StatusResult struct {
	Protocol string        `json:"protocol"`
	Status   ledger.Status `json:"status"`
	Detail   string        `json:"detail,omitempty"`
}

// Backend is the capability to submit payloads and query their status.
// Each call makes at most one remote interaction and honors ctx.
type Backend interface {
	// Submit sends req. Transport failures return ErrTransport; refusals
	// return ErrRemoteRejected with the authority's reason.
	Submit(ctx context.Context, req *Request) (*Receipt, error)

	// QueryStatus returns the current processing state of protocol.
	QueryStatus(ctx context.Context, protocol string) (*StatusResult, error)

	// Mode reports which implementation this is.
	Mode() Mode
}

// transportError wraps err as ErrTransport, keeping context errors visible
// to errors.Is.
func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
