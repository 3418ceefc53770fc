package llm

import "encoding/json"

// Schema is a strict JSON schema passed to the provider's structured-output
// mode. The definition is plain data so callers can build schemas at call
// time (the batch rater sizes its schema to the batch).
type Schema struct {
	Name string
	Def  map[string]any
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Def)
}

// ObjectSchema builds a strict object schema: all listed properties
// required, no extras allowed.
func ObjectSchema(name string, properties map[string]any, required []string) *Schema {
	return &Schema{
		Name: name,
		Def: map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// StringProperty describes a plain string field.
func StringProperty(description string) map[string]any {
	p := map[string]any{"type": "string"}
	if description != "" {
		p["description"] = description
	}
	return p
}
