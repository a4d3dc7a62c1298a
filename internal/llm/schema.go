package llm

import "sort"

// SchemaType is a JSON schema primitive.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the provider-neutral subset of JSON schema used for structured output.
// Providers translate it into their own form.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// Order lists property names in the order the model should emit them.
	Order    []string
	Required []string
	Items    *Schema
	Enum     []string
	Minimum  *float64
	Maximum  *float64
}

// JSONSchema renders s as a strict JSON schema document: objects forbid
// additional properties and every property is listed as required.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if s.Type == TypeObject {
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.PropertyNames() {
			props[name] = s.Properties[name].JSONSchema()
		}
		out["properties"] = props
		out["required"] = s.PropertyNames()
		out["additionalProperties"] = false
	}
	return out
}

// PropertyNames returns Order followed by any properties it does not mention.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.Order {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0)
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
