package compose

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpath-io/kpath-search/internal/catalog"
)

func TestServiceText_RepeatsNameThreeTimes(t *testing.T) {
	svc := &catalog.Service{
		Name:        "EmailService",
		Description: "Send and manage email communications",
		Capabilities: []catalog.Capability{
			{Description: "Send transactional email"},
		},
		Industries: []catalog.IndustryTag{{Domain: "Communication"}},
	}

	text := ServiceText(svc)

	assert.Equal(t, 3, countOccurrences(text, "EmailService"))
	assert.Contains(t, text, "Send and manage email communications")
	assert.Contains(t, text, "Send transactional email")
	assert.Contains(t, text, "Communication")
}

func TestServiceText_Deterministic(t *testing.T) {
	svc := &catalog.Service{Name: "X", Description: "desc"}
	require.Equal(t, ServiceText(svc), ServiceText(svc))
}

func TestToolText_IncludesLabeledSegments(t *testing.T) {
	tool := &catalog.Tool{
		ToolName:    "send_email",
		Description: "Sends an email to a recipient",
		InputSchema: json.RawMessage(`{"properties":{"to":{},"subject":{}}}`),
		OutputSchema: json.RawMessage(`{"properties":{"message_id":{}}}`),
	}

	text := ToolText(tool, "EmailService")

	assert.Contains(t, text, "Tool:send_email")
	assert.Contains(t, text, "Purpose:Sends an email to a recipient")
	assert.Contains(t, text, "Service:EmailService")
	assert.Contains(t, text, "Inputs:")
	assert.Contains(t, text, "Outputs:message_id")
}

func TestToolText_MissingSchemasDoesNotPanic(t *testing.T) {
	tool := &catalog.Tool{ToolName: "noop", Description: "does nothing"}
	text := ToolText(tool, "Svc")
	assert.Contains(t, text, "Inputs:")
	assert.Contains(t, text, "Outputs:")
}

func TestQueryText_TrimsAndExpandsAbbreviations(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "   send email   ", "send email"},
		{"expands auth", "auth service", "auth authentication authorization service"},
		{"empty input", "   ", ""},
		{"case-insensitive abbreviation", "AUTH service", "auth authentication authorization service"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, QueryText(tc.input))
		})
	}
}

func TestCapabilityLine(t *testing.T) {
	cap := &catalog.Capability{Name: "SendEmail", Description: "send transactional email"}
	line := CapabilityLine("EmailService", cap)
	assert.Equal(t, "EmailService: SendEmail - send transactional email", line)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
