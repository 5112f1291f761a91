// Package extract applies a declarative field-extraction spec to parsed
// HTML documents.
package extract

import (
	"fmt"
	"strings"
)

// FieldRule identifies one DOM element and how to read its text.
// Selector locates the first matching element; when FromParent is set
// the rule climbs to that element's parent, and when Child is set the
// lookup continues with the first Child match inside the current
// element. The ecommerce template uses this to express "the paragraph
// next to the description header".
type FieldRule struct {
	Name       string `yaml:"name" json:"name"`
	Selector   string `yaml:"selector" json:"selector"`
	FromParent bool   `yaml:"from_parent,omitempty" json:"from_parent,omitempty"`
	Child      string `yaml:"child,omitempty" json:"child,omitempty"`
	Required   bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// Spec is an ordered list of field rules. Order determines the field
// order in persisted records.
type Spec struct {
	Fields []FieldRule `yaml:"fields" json:"fields"`
}

// Validate checks the spec for structural problems before a crawl
// starts. It is a setup-time check: an invalid spec is fatal.
func (s Spec) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("extraction spec requires at least one field")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, rule := range s.Fields {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("field %d: name cannot be empty", i)
		}
		if strings.TrimSpace(rule.Selector) == "" {
			return fmt.Errorf("field %q: selector cannot be empty", rule.Name)
		}
		if seen[rule.Name] {
			return fmt.Errorf("field %q: duplicate field name", rule.Name)
		}
		seen[rule.Name] = true
	}
	return nil
}

// RequiredFields returns the names of all required fields in spec order.
func (s Spec) RequiredFields() []string {
	var names []string
	for _, rule := range s.Fields {
		if rule.Required {
			names = append(names, rule.Name)
		}
	}
	return names
}
