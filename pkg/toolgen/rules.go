package toolgen

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// RuleKind selects the active SchemaRule variant.
type RuleKind string

const (
	RuleScalar     RuleKind = "scalar"
	RuleEnum       RuleKind = "enum"
	RuleArray      RuleKind = "array"
	RuleObject     RuleKind = "object"
	RulePermissive RuleKind = "permissive"
)

// ScalarKind names the scalar rule types.
type ScalarKind string

const (
	ScalarString   ScalarKind = "string"
	ScalarDateTime ScalarKind = "datetime"
	ScalarNumber   ScalarKind = "number"
	ScalarInteger  ScalarKind = "integer"
	ScalarBoolean  ScalarKind = "boolean"
	ScalarAny      ScalarKind = "any"
)

// SchemaRule is the validation rule derived from one schema fragment.
// Exactly one variant is active, selected by Kind: a scalar, a closed
// enum, an array of an element rule, an object with per-field rules, or
// a permissive object accepting any fields. Permissive is a first-class
// variant; consumers must handle it explicitly.
type SchemaRule struct {
	Kind        RuleKind
	Scalar      ScalarKind
	Enum        []any
	Elem        *SchemaRule
	Fields      map[string]SchemaRule
	Description string
}

func ScalarRule(kind ScalarKind) SchemaRule {
	return SchemaRule{Kind: RuleScalar, Scalar: kind}
}

func EnumRule(values []any) SchemaRule {
	return SchemaRule{Kind: RuleEnum, Enum: values}
}

func ArrayRule(elem SchemaRule) SchemaRule {
	return SchemaRule{Kind: RuleArray, Elem: &elem}
}

func ObjectRule(fields map[string]SchemaRule) SchemaRule {
	return SchemaRule{Kind: RuleObject, Fields: fields}
}

func PermissiveRule() SchemaRule {
	return SchemaRule{Kind: RulePermissive}
}

// TranslateFragment converts one schema fragment into a SchemaRule.
// Objects flatten a single level: fields that are themselves objects
// degrade to the permissive rule, and anything unrecognized degrades to
// the unconstrained scalar.
func TranslateFragment(ref *openapi3.SchemaRef) SchemaRule {
	return translateSchema(ref, 0)
}

func translateSchema(ref *openapi3.SchemaRef, depth int) SchemaRule {
	if ref == nil {
		return ScalarRule(ScalarAny)
	}
	if ref.Ref != "" {
		return withDescription(PermissiveRule(), ref.Value)
	}
	s := ref.Value
	if s == nil {
		return ScalarRule(ScalarAny)
	}

	switch {
	case s.Type.Is(openapi3.TypeString):
		if len(s.Enum) > 0 {
			return withDescription(EnumRule(s.Enum), s)
		}
		if s.Format == "date-time" {
			return withDescription(ScalarRule(ScalarDateTime), s)
		}
		return withDescription(ScalarRule(ScalarString), s)
	case s.Type.Is(openapi3.TypeNumber):
		return withDescription(ScalarRule(ScalarNumber), s)
	case s.Type.Is(openapi3.TypeInteger):
		return withDescription(ScalarRule(ScalarInteger), s)
	case s.Type.Is(openapi3.TypeBoolean):
		return withDescription(ScalarRule(ScalarBoolean), s)
	case s.Type.Is(openapi3.TypeArray):
		return withDescription(ArrayRule(itemRule(s.Items)), s)
	case s.Type.Is(openapi3.TypeObject) || len(s.Properties) > 0:
		if len(s.Properties) == 0 || depth > 0 {
			return withDescription(PermissiveRule(), s)
		}
		fields := make(map[string]SchemaRule, len(s.Properties))
		for name, prop := range s.Properties {
			fields[name] = translateSchema(prop, depth+1)
		}
		return withDescription(ObjectRule(fields), s)
	}
	return withDescription(ScalarRule(ScalarAny), s)
}

// itemRule maps array items: scalar item types keep their scalar rule,
// everything else (objects, refs, missing items) is unconstrained.
func itemRule(items *openapi3.SchemaRef) SchemaRule {
	if items == nil || items.Ref != "" || items.Value == nil {
		return ScalarRule(ScalarAny)
	}
	it := items.Value
	switch {
	case it.Type.Is(openapi3.TypeString):
		return ScalarRule(ScalarString)
	case it.Type.Is(openapi3.TypeNumber):
		return ScalarRule(ScalarNumber)
	case it.Type.Is(openapi3.TypeInteger):
		return ScalarRule(ScalarInteger)
	case it.Type.Is(openapi3.TypeBoolean):
		return ScalarRule(ScalarBoolean)
	}
	return ScalarRule(ScalarAny)
}

func withDescription(rule SchemaRule, s *openapi3.Schema) SchemaRule {
	if s != nil && s.Description != "" {
		rule.Description = s.Description
	}
	return rule
}

// TranslateOperation flattens an operation's parameters and JSON request
// body into a single name-to-rule map plus the required-name list. Body
// fields merge flat into the map and overwrite same-named parameters, a
// known sharp edge kept for compatibility with existing descriptions.
func TranslateOperation(op Operation) (map[string]SchemaRule, []string) {
	params := make(map[string]SchemaRule)
	var required []string

	for _, ref := range op.Parameters {
		p := ref.Value
		if p == nil || p.Name == "" {
			continue
		}
		rule := TranslateFragment(p.Schema)
		if p.Description != "" {
			rule.Description = p.Description
		}
		params[p.Name] = rule
		if p.Required {
			required = appendUnique(required, p.Name)
		}
	}

	schema := jsonBodySchema(op)
	if schema == nil {
		return params, required
	}

	if schema.Ref != "" || schema.Value == nil {
		params[bodyArgName] = TranslateFragment(schema)
		return params, required
	}
	body := schema.Value
	switch {
	case body.Type.Is(openapi3.TypeArray):
		params[bodyArgName] = TranslateFragment(schema)
	case len(body.Properties) > 0:
		names := sortedPropertyNames(body.Properties)
		for _, name := range names {
			params[name] = translateSchema(body.Properties[name], 1)
		}
		for _, name := range body.Required {
			required = appendUnique(required, name)
		}
	default:
		// object without properties, or a scalar body: one opaque field
		params[bodyArgName] = TranslateFragment(schema)
	}
	return params, required
}

// bodyArgName is the argument key callers use for opaque or array-typed
// request bodies, and the grouping key for flat body fields at call time.
const bodyArgName = "body"

// jsonBodySchema returns the schema of the operation's application/json
// request body, or nil when no translatable body is declared.
func jsonBodySchema(op Operation) *openapi3.SchemaRef {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	mt := op.RequestBody.Value.Content.Get("application/json")
	if mt == nil {
		return nil
	}
	return mt.Schema
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

func sortedPropertyNames(props openapi3.Schemas) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
