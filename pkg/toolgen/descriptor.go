package toolgen

import (
	"sort"
	"strings"
)

// ToolDescriptor is the registry entry exposing one operation as an
// invocable, schema-validated capability. Built once, immutable, keyed
// by Name for the process lifetime.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      map[string]SchemaRule
	Required    []string
	Operation   Operation
}

// BuildDescriptor converts one operation into its Tool Descriptor. The
// composed description is the only documentation an invoking agent sees,
// so every available summary, description, and field doc is folded in.
// The composition is deterministic: converting the same description
// twice yields byte-identical descriptors.
func BuildDescriptor(op Operation) ToolDescriptor {
	params, required := TranslateOperation(op)
	return ToolDescriptor{
		Name:        op.OperationID,
		Description: describeOperation(op, params),
		Params:      params,
		Required:    required,
		Operation:   op,
	}
}

// BuildDescriptors converts every operation, in order. Descriptors with
// duplicate names are kept; whoever registers them decides the winner.
func BuildDescriptors(ops []Operation) []ToolDescriptor {
	descs := make([]ToolDescriptor, 0, len(ops))
	for _, op := range ops {
		descs = append(descs, BuildDescriptor(op))
	}
	return descs
}

func describeOperation(op Operation, params map[string]SchemaRule) string {
	var b strings.Builder

	base := op.Summary
	if base == "" {
		base = op.Description
	}
	if base == "" {
		base = op.Method + " " + op.Path
	}
	b.WriteString(base)

	if op.Summary != "" && op.Description != "" && op.Description != op.Summary {
		b.WriteString("\n\n")
		b.WriteString(op.Description)
	}

	documented := make([]string, 0, len(params))
	for name, rule := range params {
		if rule.Description != "" {
			documented = append(documented, name)
		}
	}
	if len(documented) > 0 {
		sort.Strings(documented)
		b.WriteString("\n\nParameters:")
		for _, name := range documented {
			b.WriteString("\n  ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(params[name].Description)
		}
	}

	if names := requiredBodyFields(op); len(names) > 0 {
		b.WriteString("\n\nRequired fields: ")
		b.WriteString(strings.Join(names, ", "))
	}

	return b.String()
}

// requiredBodyFields returns the body schema's required field names, but
// only when the request body itself is required.
func requiredBodyFields(op Operation) []string {
	if op.RequestBody == nil || op.RequestBody.Value == nil || !op.RequestBody.Value.Required {
		return nil
	}
	schema := jsonBodySchema(op)
	if schema == nil || schema.Value == nil {
		return nil
	}
	return schema.Value.Required
}
