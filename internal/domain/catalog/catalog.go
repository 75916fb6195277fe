// Package catalog holds the compiled-in table of laboratory test templates.
// The table is read-only at runtime: templates are copied out on every
// lookup so callers can never mutate the shared reference data.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Parameter is one measured analyte of a template.
type Parameter struct {
	ID          string `yaml:"id" json:"id"`
	TestName    string `yaml:"testName" json:"testName"`
	Unit        string `yaml:"unit" json:"unit"`
	NormalRange string `yaml:"normalRange" json:"normalRange"`
}

// Template is a catalog-defined test type with a fixed parameter list and price.
type Template struct {
	ID         string      `yaml:"id" json:"id"`
	Name       string      `yaml:"name" json:"name"`
	Price      float64     `yaml:"price" json:"price"`
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
}

func (t Template) clone() Template {
	params := make([]Parameter, len(t.Parameters))
	copy(params, t.Parameters)
	t.Parameters = params
	return t
}

var (
	templates []Template
	byID      map[string]int
)

func init() {
	parsed, err := parse(templatesYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	templates = parsed
	byID = make(map[string]int, len(parsed))
	for i, t := range parsed {
		byID[t.ID] = i
	}
}

// parse decodes a template table and checks that template ids are globally
// unique and parameter ids are unique within their template.
func parse(data []byte) ([]Template, error) {
	var out []Template
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	seen := make(map[string]bool, len(out))
	for _, t := range out {
		if t.ID == "" {
			return nil, fmt.Errorf("template %q has no id", t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true

		params := make(map[string]bool, len(t.Parameters))
		for _, p := range t.Parameters {
			if params[p.ID] {
				return nil, fmt.Errorf("template %q: duplicate parameter id %q", t.ID, p.ID)
			}
			params[p.ID] = true
		}
	}
	return out, nil
}

// All returns every template in catalog order.
func All() []Template {
	out := make([]Template, len(templates))
	for i, t := range templates {
		out[i] = t.clone()
	}
	return out
}

// Lookup returns the template with the given id.
func Lookup(id string) (Template, bool) {
	i, ok := byID[id]
	if !ok {
		return Template{}, false
	}
	return templates[i].clone(), true
}
