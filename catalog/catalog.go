package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedEventType is returned when a type has no catalog definition.
var ErrUnsupportedEventType = errors.New("filer: unsupported event type")

// Catalog is the immutable table of supported event types. It is safe for
// concurrent use; nothing mutates it after New returns.
type Catalog struct {
	defs    map[Type]*Definition
	ordered []*Definition
}

// New builds the catalog from the built-in definitions and derives the JSON
// Schema of every entry. It panics on a malformed built-in definition.
func New() *Catalog {
	c, err := newCatalog(builtins())
	if err != nil {
		panic(err)
	}
	return c
}

func newCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[Type]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if _, dup := c.defs[d.Type]; dup {
			return nil, fmt.Errorf("catalog: duplicate definition for %q", d.Type)
		}
		schema, err := deriveSchema(&d)
		if err != nil {
			return nil, fmt.Errorf("catalog: derive schema for %q: %w", d.Type, err)
		}
		d.Schema = schema
		c.defs[d.Type] = &d
		c.ordered = append(c.ordered, &d)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].Code < c.ordered[j].Code
	})
	return c, nil
}

// Lookup returns the definition for an event type.
func (c *Catalog) Lookup(t Type) (*Definition, error) {
	d, ok := c.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEventType, t)
	}
	return d, nil
}

// SchemaVersion returns the schema version mapped to an event type.
func (c *Catalog) SchemaVersion(t Type) (string, error) {
	d, err := c.Lookup(t)
	if err != nil {
		return "", err
	}
	return d.SchemaVersion, nil
}

// Types returns every supported type ordered by authority code.
func (c *Catalog) Types() []Type {
	out := make([]Type, len(c.ordered))
	for i, d := range c.ordered {
		out[i] = d.Type
	}
	return out
}

// List returns the definitions matching opts, ordered by authority code.
func (c *Catalog) List(opts ListOpts) []*Definition {
	out := make([]*Definition, 0, len(c.ordered))
	for _, d := range c.ordered {
		if opts.Group != "" && d.Group != opts.Group {
			continue
		}
		if opts.Pattern != "" && !Match(opts.Pattern, d.QualifiedName()) {
			continue
		}
		out = append(out, d)
	}
	return out
}
