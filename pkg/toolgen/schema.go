package toolgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// RuleToSchema renders one SchemaRule as a JSON Schema fragment.
func RuleToSchema(rule SchemaRule) map[string]any {
	schema := map[string]any{}
	switch rule.Kind {
	case RuleScalar:
		switch rule.Scalar {
		case ScalarString:
			schema["type"] = "string"
		case ScalarDateTime:
			schema["type"] = "string"
			schema["format"] = "date-time"
		case ScalarNumber:
			schema["type"] = "number"
		case ScalarInteger:
			schema["type"] = "integer"
		case ScalarBoolean:
			schema["type"] = "boolean"
		case ScalarAny:
			// unconstrained
		}
	case RuleEnum:
		schema["type"] = "string"
		schema["enum"] = rule.Enum
	case RuleArray:
		schema["type"] = "array"
		if rule.Elem != nil {
			schema["items"] = RuleToSchema(*rule.Elem)
		} else {
			schema["items"] = map[string]any{}
		}
	case RuleObject:
		schema["type"] = "object"
		props := make(map[string]any, len(rule.Fields))
		for name, field := range rule.Fields {
			props[name] = RuleToSchema(field)
		}
		schema["properties"] = props
	case RulePermissive:
		schema["type"] = "object"
		schema["additionalProperties"] = true
	}
	if rule.Description != "" {
		schema["description"] = rule.Description
	}
	return schema
}

// BuildInputSchema renders a flattened rule map as the tool's input
// schema. Map keys marshal in sorted order, so the rendered bytes are
// identical across repeated conversions of the same description.
func BuildInputSchema(params map[string]SchemaRule, required []string) map[string]any {
	properties := make(map[string]any, len(params))
	for name, rule := range params {
		properties[name] = RuleToSchema(rule)
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// MarshalInputSchema renders the input schema to canonical JSON bytes.
func MarshalInputSchema(params map[string]SchemaRule, required []string) ([]byte, error) {
	data, err := json.Marshal(BuildInputSchema(params, required))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return data, nil
}

// ValidateArguments checks call-time arguments against the tool's input
// schema and reports every violation in one error.
func ValidateArguments(schema []byte, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}
