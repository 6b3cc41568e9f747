package api

import (
	"time"

	"github.com/xraph/filer/ledger"
	"github.com/xraph/filer/payload"
)

// ---------------------------------------------------------------------------
// Catalog requests
// ---------------------------------------------------------------------------

// ListCatalogForgeRequest binds query parameters for GET /catalog.
type ListCatalogForgeRequest struct {
	Group   string `description:"Filter by group (contract, payroll, control)" query:"group"`
	Pattern string `description:"Glob over qualified names, e.g. payroll.*"    query:"pattern"`
}

// GetDefinitionForgeRequest binds the path for GET /catalog/:type.
type GetDefinitionForgeRequest struct {
	Type string `description:"Event type" path:"type"`
}

// FileEventForgeRequest binds the body for POST /events and POST /preview.
type FileEventForgeRequest struct {
	EventType string       `description:"Event type (e.g. admission)" json:"event_type"`
	Data      payload.Data `description:"Business data keyed by template source" json:"data"`
}

// PreviewForgeResponse is the response for POST /preview.
type PreviewForgeResponse struct {
	*payload.Payload
	Size int `json:"size"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// ListEventsForgeRequest binds query parameters for GET /events.
type ListEventsForgeRequest struct {
	Status    string `description:"Filter by lifecycle status" query:"status"`
	EventType string `description:"Filter by event type"       query:"event_type"`
	Offset    int    `description:"Pagination offset"          query:"offset"`
	Limit     int    `description:"Page size (default 50)"     query:"limit"`
}

// GetEventForgeRequest binds the path for GET /events/:eventId.
type GetEventForgeRequest struct {
	EventID string `description:"Event identifier" path:"eventId"`
}

// QueryStatusForgeRequest binds the path for GET /protocols/:protocol.
type QueryStatusForgeRequest struct {
	Protocol string `description:"Authority receipt protocol" path:"protocol"`
}

// FileEventForgeResponse is the response for POST /events.
type FileEventForgeResponse struct {
	Event *ledger.Event `json:"event"`
	Error string        `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Credential requests
// ---------------------------------------------------------------------------

// ListCredentialsForgeRequest is empty; GET /credentials has no parameters.
type ListCredentialsForgeRequest struct{}

// ConfigureCredentialForgeRequest binds path + body for PUT /credentials/:kind.
type ConfigureCredentialForgeRequest struct {
	Kind         string    `description:"certificate or power_of_attorney"       path:"kind"`
	Subject      string    `description:"Holder or grantee"                      json:"subject"`
	Issuer       string    `description:"Issuing authority or grantor"           json:"issuer"`
	SerialNumber string    `description:"Serial number at the issuer"            json:"serial_number,omitempty"`
	ValidFrom    time.Time `description:"Start of validity (RFC3339)"            json:"valid_from"`
	ValidTo      time.Time `description:"End of validity (RFC3339)"              json:"valid_to"`
	SigningKey   string    `description:"Request signing key"                    json:"signing_key,omitempty"`
	PEM          string    `description:"PEM certificate, replaces fields above" json:"pem,omitempty"`
}

// CredentialCheckForgeResponse is the response for GET /credentials/check.
type CredentialCheckForgeResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ---------------------------------------------------------------------------
// Stats requests
// ---------------------------------------------------------------------------

// StatsForgeRequest is empty; GET /stats has no parameters.
type StatsForgeRequest struct{}
