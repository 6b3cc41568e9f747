package catalog

import "encoding/json"

// Type names a filing event type. The set is closed: every Type the engine
// accepts has exactly one Definition in the catalog.
type Type string

// Supported event types.
const (
	TypeAdmission       Type = "admission"
	TypeRateChange      Type = "rate-change"
	TypeTermination     Type = "termination"
	TypeRemuneration    Type = "remuneration"
	TypePeriodicClosure Type = "periodic-closure"
	TypeExclusion       Type = "exclusion"
)

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// Kind controls how a business value is coerced before it is placed in a
// rendered document.
type Kind string

// Field kinds.
const (
	KindString     Kind = "string"
	KindIdentifier Kind = "identifier" // digits only, punctuation stripped
	KindDate       Kind = "date"       // YYYY-MM-DD
	KindPeriod     Kind = "period"     // YYYY-MM
	KindMoney      Kind = "money"      // fixed two decimals
	KindCode       Kind = "code"       // trimmed, upper case
	KindInteger    Kind = "integer"
	KindBool       Kind = "bool"
)

// SourceSubject is the template source that resolves to the filer's own
// identifier instead of a business data key.
const SourceSubject = "$subject"

// Field is one slot of a payload template.
type Field struct {
	// Path is the dotted destination inside the document, e.g. "worker.taxId".
	Path string `json:"path"`

	// Source is the business data key the value is read from.
	Source string `json:"source"`

	// Kind is the coercion applied to the value.
	Kind Kind `json:"kind"`

	// Required fields must be present in the business data.
	Required bool `json:"required,omitempty"`

	// Default is used when an optional source is absent.
	Default any `json:"default,omitempty"`
}

// Definition is the catalog entry for one event type.
type Definition struct {
	// Type is the catalog key.
	Type Type `json:"type"`

	// Group is the family the type belongs to ("contract", "payroll", "control").
	Group string `json:"group"`

	// Code is the authority's identifier for the event layout (e.g. "S-2200").
	Code string `json:"code"`

	// Description is a human-readable explanation of when the event is filed.
	Description string `json:"description"`

	// SchemaVersion is the layout version rendered payloads declare.
	SchemaVersion string `json:"schema_version"`

	// Template lists the document slots filled from business data.
	Template []Field `json:"template"`

	// Schema is the JSON Schema rendered documents are validated against.
	// It is derived from Template when the catalog is built.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// QualifiedName returns "<group>.<type>", the name glob patterns match against.
func (d *Definition) QualifiedName() string {
	return d.Group + "." + string(d.Type)
}

// ListOpts configures filtering for catalog listing.
type ListOpts struct {
	// Pattern is a glob over qualified names, e.g. "payroll.*".
	Pattern string
	Group   string
}
