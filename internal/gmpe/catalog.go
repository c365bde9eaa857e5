package gmpe

import (
	"fmt"
	"slices"
	"strings"
)

// Catalog is an immutable, ordered set of models. It is built once at start
// up and shared by reference; active subsets are computed per call.
type Catalog struct {
	models []Model
	index  map[string]int
}

// NewCatalog builds a catalog preserving registration order.
func NewCatalog(models ...Model) (*Catalog, error) {
	c := &Catalog{
		models: make([]Model, 0, len(models)),
		index:  make(map[string]int, len(models)),
	}
	for _, m := range models {
		if err := m.validate(); err != nil {
			return nil, err
		}
		for _, name := range append([]string{m.Name}, m.Aliases...) {
			if _, dup := c.index[name]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, name)
			}
			c.index[name] = len(c.models)
		}
		c.models = append(c.models, m)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(Builtin()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of models.
func (c *Catalog) Len() int {
	return len(c.models)
}

// Names returns model names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.models))
	for i, m := range c.models {
		names[i] = m.Name
	}
	return names
}

// Models returns a copy of all models in registration order.
func (c *Catalog) Models() []Model {
	return slices.Clone(c.models)
}

// Lookup returns the model registered under name or one of its aliases.
func (c *Catalog) Lookup(name string) (Model, bool) {
	i, ok := c.index[name]
	if !ok {
		return Model{}, false
	}
	return c.models[i], true
}

// Select resolves the requested names to models in registration order. An
// empty request selects every model. Aliases resolve to their model. Unknown
// names are skipped and returned so the caller can report them.
func (c *Catalog) Select(names []string) (active []Model, unknown []string) {
	if len(names) == 0 {
		return c.Models(), nil
	}

	want := make([]bool, len(c.models))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		i, ok := c.index[n]
		if !ok {
			if !slices.Contains(unknown, n) {
				unknown = append(unknown, n)
			}
			continue
		}
		want[i] = true
	}

	for i, m := range c.models {
		if want[i] {
			active = append(active, m)
		}
	}
	return active, unknown
}
