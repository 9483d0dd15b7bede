// Package compose turns catalog entities into deterministic text for
// embedding (§4.2 of the spec). Every function here is pure: same input,
// same output, across processes and restarts.
package compose

import (
	"encoding/json"
	"strings"

	"github.com/kpath-io/kpath-search/internal/catalog"
)

// abbreviations expands a small fixed table of domain shorthand to its
// full form before embedding a user query (§4.2 "an optional
// pre-processing step may expand a small fixed table of domain
// abbreviations").
var abbreviations = map[string]string{
	"auth":   "auth authentication authorization",
	"api":    "api application programming interface",
	"db":     "db database",
	"ml":     "ml machine learning",
	"crm":    "crm customer relationship management",
	"erp":    "erp enterprise resource planning",
	"hr":     "hr human resources",
	"kyc":    "kyc know your customer",
	"sso":    "sso single sign on",
	"etl":    "etl extract transform load",
}

// ServiceText composes the weighted bag-of-features text for a service:
// name repeated 3x, then description, then each capability description,
// each domain, and (service tags folded into domains here since the
// model carries no separate tag entity) each industry tag (§4.2).
func ServiceText(svc *catalog.Service) string {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteString(svc.Name)
		b.WriteString(" ")
	}
	b.WriteString(svc.Description)
	for _, cap := range svc.Capabilities {
		b.WriteString(" ")
		b.WriteString(cap.Description)
	}
	for _, ind := range svc.Industries {
		b.WriteString(" ")
		b.WriteString(ind.Domain)
	}
	return strings.TrimSpace(b.String())
}

// ToolText composes the text for a tool: labeled segments for name,
// purpose, parent service, and input/output schema property names
// (§4.2).
func ToolText(tool *catalog.Tool, serviceName string) string {
	var b strings.Builder
	b.WriteString("Tool:")
	b.WriteString(tool.ToolName)
	b.WriteString(" Purpose:")
	b.WriteString(tool.Description)
	b.WriteString(" Service:")
	b.WriteString(serviceName)
	b.WriteString(" Inputs:")
	b.WriteString(strings.Join(schemaPropertyNames(tool.InputSchema), ","))
	b.WriteString(" Outputs:")
	b.WriteString(strings.Join(schemaPropertyNames(tool.OutputSchema), ","))
	if labels := exampleCallLabels(tool.ExampleCalls); len(labels) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(labels, " "))
	}
	return strings.TrimSpace(b.String())
}

// QueryText trims the raw query and optionally expands recognized
// abbreviation tokens to their full forms (§4.2).
func QueryText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	tokens := strings.Fields(trimmed)
	expanded := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		key := strings.ToLower(tok)
		if full, ok := abbreviations[key]; ok {
			expanded = append(expanded, full)
			continue
		}
		expanded = append(expanded, tok)
	}
	return strings.Join(expanded, " ")
}

// schemaPropertyNames extracts the top-level property names of a JSON
// Schema-shaped object, returning nil for empty/malformed input (tool
// schemas are optional; absence is not an error).
func schemaPropertyNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	return names
}

// exampleCallLabels pulls a "label" or "name" field out of each example
// call entry, if present.
func exampleCallLabels(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var examples []struct {
		Label string `json:"label"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &examples); err != nil {
		return nil
	}
	labels := make([]string, 0, len(examples))
	for _, ex := range examples {
		switch {
		case ex.Label != "":
			labels = append(labels, ex.Label)
		case ex.Name != "":
			labels = append(labels, ex.Name)
		}
	}
	return labels
}

// CapabilityLine composes the single-line text used by capabilities
// search mode (§4.7): a short fragment combining the service and
// capability names with its description.
func CapabilityLine(serviceName string, cap *catalog.Capability) string {
	var b strings.Builder
	b.WriteString(serviceName)
	b.WriteString(": ")
	b.WriteString(cap.Name)
	if cap.Description != "" {
		b.WriteString(" - ")
		b.WriteString(cap.Description)
	}
	return b.String()
}

// ToolLine composes the single-line text used by capabilities search
// mode (§4.7) to project an active tool into the same candidate set as
// capability rows: service and tool names with the tool's purpose.
func ToolLine(serviceName string, tool *catalog.Tool) string {
	var b strings.Builder
	b.WriteString(serviceName)
	b.WriteString(": ")
	b.WriteString(tool.ToolName)
	if tool.Description != "" {
		b.WriteString(" - ")
		b.WriteString(tool.Description)
	}
	return b.String()
}

// WorkflowLine synthesizes the textual description for a workflow
// triple (§4.7 workflows mode).
func WorkflowLine(initiatorName, targetName, toolName string, invocationCount int) string {
	var b strings.Builder
	b.WriteString(initiatorName)
	b.WriteString(" invokes ")
	b.WriteString(targetName)
	b.WriteString(" via ")
	b.WriteString(toolName)
	return b.String()
}
