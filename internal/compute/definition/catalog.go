package definition

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownDefinition is returned by Catalog.Lookup for unregistered names.
var ErrUnknownDefinition = errors.New("definition: unknown catalog entry")

// Well-known catalog entries.
const (
	Massing  = "massing"
	Wind     = "wind"
	Sunlight = "sunlight"
	Thermal  = "thermal"
)

// Entry wires one logical definition to its .gh file.
type Entry struct {
	Name string `yaml:"-"`

	// File is resolved through the Resolver; a URL is used as a pointer.
	File string `yaml:"file"`

	// Inputs maps request field names to the Get component names inside the
	// definition.  Fields without a mapping use their own name.
	Inputs map[string]string `yaml:"inputs,omitempty"`

	// ImageParam receives the per-request path the definition writes its
	// image to.  Empty means the definition produces no image.
	ImageParam string `yaml:"image_param,omitempty"`

	GeometryOutput string `yaml:"geometry_output,omitempty"`
	SummaryOutput  string `yaml:"summary_output,omitempty"`

	// MetricOutputs restricts which outputs become metrics.  Empty means
	// every output with a numeric first value.
	MetricOutputs []string `yaml:"metric_outputs,omitempty"`

	GuardExpr string `yaml:"guard,omitempty"`

	guard *Guard
}

// InputName returns the definition-side name for a request field.
func (e *Entry) InputName(field string) string {
	if n, ok := e.Inputs[field]; ok && n != "" {
		return n
	}
	return field
}

// Guard returns the compiled guard, or nil when none is configured.
func (e *Entry) Guard() *Guard { return e.guard }

// IsMetric reports whether output name should be collected as a metric.
func (e *Entry) IsMetric(name string) bool {
	if name == e.SummaryOutput || name == e.GeometryOutput {
		return false
	}
	if len(e.MetricOutputs) == 0 {
		return true
	}
	for _, m := range e.MetricOutputs {
		if m == name {
			return true
		}
	}
	return false
}

func (e *Entry) compile() error {
	if e.File == "" {
		return fmt.Errorf("definition: entry %q has no file", e.Name)
	}
	e.guard = nil
	if e.GuardExpr == "" {
		return nil
	}
	g, err := CompileGuard(e.GuardExpr)
	if err != nil {
		return fmt.Errorf("definition: entry %q: %w", e.Name, err)
	}
	e.guard = g
	return nil
}

// Catalog is the set of known definitions.
type Catalog struct {
	Definitions map[string]*Entry `yaml:"definitions"`
}

// DefaultCatalog returns the built-in wiring used when no catalog file is
// configured.
func DefaultCatalog() *Catalog {
	simInputs := map[string]string{"massing_data": "massing", "context_data": "context"}
	c := &Catalog{Definitions: map[string]*Entry{
		Massing: {
			File:           "massing.gh",
			GeometryOutput: "geometry",
			SummaryOutput:  "description",
		},
		Wind: {
			File:          "wind.gh",
			Inputs:        simInputs,
			ImageParam:    "output_path",
			SummaryOutput: "summary",
		},
		Sunlight: {
			File:          "sunlight.gh",
			Inputs:        simInputs,
			ImageParam:    "output_path",
			SummaryOutput: "summary",
		},
		Thermal: {
			File:          "thermal.gh",
			Inputs:        simInputs,
			ImageParam:    "output_path",
			SummaryOutput: "summary",
		},
	}}
	for name, e := range c.Definitions {
		e.Name = name
		// built-in entries carry no guard, compile cannot fail
		_ = e.compile()
	}
	return c
}

// LoadCatalog reads a YAML catalog and layers it over DefaultCatalog.  An
// empty path returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read catalog %q: %w", path, err)
	}
	if err := c.merge(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseCatalog layers YAML data over DefaultCatalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	c := DefaultCatalog()
	if err := c.merge(data); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) merge(data []byte) error {
	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("definition: parse catalog: %w", err)
	}
	for name, e := range overlay.Definitions {
		if e == nil {
			continue
		}
		e.Name = name
		if err := e.compile(); err != nil {
			return err
		}
		c.Definitions[name] = e
	}
	return nil
}

// Lookup returns the entry registered under name.
func (c *Catalog) Lookup(name string) (*Entry, error) {
	e, ok := c.Definitions[name]
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, name)
	}
	return e, nil
}

// Names lists registered entries in lexical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Definitions))
	for n := range c.Definitions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

//Personal.AI order the ending
