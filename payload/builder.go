package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/xraph/filer/catalog"
)

// Builder renders business data into payloads. It performs no I/O and holds
// no mutable state besides the validator's compiled-schema cache, so it is
// safe for concurrent use.
type Builder struct {
	catalog     *catalog.Catalog
	validator   *catalog.Validator
	subject     string
	environment string
}

// NewBuilder returns a builder that stamps every document with subject and
// environment.
func NewBuilder(cat *catalog.Catalog, subject, environment string) *Builder {
	if cat == nil {
		cat = catalog.New()
	}
	return &Builder{
		catalog:     cat,
		validator:   catalog.NewValidator(),
		subject:     Identifier(subject),
		environment: environment,
	}
}

// Subject returns the normalized filer identifier.
func (b *Builder) Subject() string { return b.subject }

// Build renders data with the template of eventType.
func (b *Builder) Build(eventType catalog.Type, data Data) (*Payload, error) {
	def, err := b.catalog.Lookup(eventType)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{
		"eventCode":     def.Code,
		"schemaVersion": def.SchemaVersion,
		"environment":   b.environment,
	}

	for _, f := range def.Template {
		var raw any
		var ok bool
		if f.Source == catalog.SourceSubject {
			raw, ok = b.subject, b.subject != ""
		} else {
			raw, ok = data[f.Source]
			if ok && isBlank(raw) {
				ok = false
			}
		}
		if !ok {
			if f.Default != nil {
				setPath(doc, f.Path, f.Default)
				continue
			}
			if f.Required {
				return nil, fmt.Errorf("%w: %s: missing required field %q", ErrPayloadValidationFailed, eventType, f.Source)
			}
			continue
		}

		v, coerceErr := coerce(f.Kind, raw)
		if coerceErr != nil {
			return nil, fmt.Errorf("%w: %s: field %q: %w", ErrPayloadValidationFailed, eventType, f.Source, coerceErr)
		}
		setPath(doc, f.Path, v)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPayloadValidationFailed, err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalize: %w", ErrPayloadValidationFailed, err)
	}
	if err := b.validator.ValidateDefinition(def, canonical); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPayloadValidationFailed, eventType, err)
	}

	sum := sha256.Sum256(canonical)
	return &Payload{
		Type:          def.Type,
		Code:          def.Code,
		SchemaVersion: def.SchemaVersion,
		Environment:   b.environment,
		Document:      canonical,
		Digest:        hex.EncodeToString(sum[:]),
	}, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// setPath writes v at a dotted path, creating intermediate objects.
func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	node := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[p] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = v
}
