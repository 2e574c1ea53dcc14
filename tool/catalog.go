package tool

import (
	"maps"
	"slices"
)

// Catalog maps tool names to invocable capabilities for one plan node. A
// catalog is built once during resolution and read-only afterwards, so it is
// safe to share across concurrently executing children.
type Catalog map[string]Tool

// NewCatalog creates a catalog from the given tools. Later entries override
// earlier ones on name collision.
func NewCatalog(tools ...Tool) Catalog {
	c := Catalog{}
	for _, t := range tools {
		c[t.Name()] = t
	}
	return c
}

// Add registers a tool, overriding any existing entry with the same name.
func (c Catalog) Add(t Tool) { c[t.Name()] = t }

// Get returns the tool registered under name.
func (c Catalog) Get(name string) (Tool, bool) {
	t, ok := c[name]
	return t, ok
}

// Clone returns a shallow copy; the tools themselves are shared.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	maps.Copy(out, c)
	return out
}

// Merge returns a new catalog combining the receiver (inherited) with local:
// local declarations take precedence over inherited names.
func (c Catalog) Merge(local Catalog) Catalog {
	out := c.Clone()
	maps.Copy(out, local)
	return out
}

// Names returns the sorted tool names, giving plans a deterministic shape.
func (c Catalog) Names() []string {
	names := slices.Collect(maps.Keys(c))
	slices.Sort(names)
	return names
}
