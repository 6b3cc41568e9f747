// Package payload renders typed business events into schema-versioned
// documents ready for submission to the filing authority.
package payload

import (
	"encoding/json"
	"errors"

	"github.com/xraph/filer/catalog"
)

var (
	// ErrUnsupportedEventType is returned when the event type has no template.
	ErrUnsupportedEventType = catalog.ErrUnsupportedEventType

	// ErrPayloadValidationFailed is returned when business data cannot fill
	// the template or the rendered document violates the type's schema.
	ErrPayloadValidationFailed = errors.New("filer: payload validation failed")
)

// Data is the loosely structured business record an event is built from.
// Keys are the template sources declared by the catalog, e.g. "worker_tax_id".
type Data map[string]any

// Payload is a rendered, schema-versioned document.
type Payload struct {
	// Type is the event type the document was built for.
	Type catalog.Type `json:"type"`

	// Code is the authority layout code (e.g. "S-2200").
	Code string `json:"code"`

	// SchemaVersion is the layout version the document declares.
	SchemaVersion string `json:"schema_version"`

	// Environment is the authority environment the document targets.
	Environment string `json:"environment"`

	// Document is the RFC 8785 canonical JSON encoding of the rendered event.
	Document json.RawMessage `json:"document"`

	// Digest is the hex SHA-256 of Document.
	Digest string `json:"digest"`
}

// Size returns the encoded document length in bytes.
func (p *Payload) Size() int { return len(p.Document) }
