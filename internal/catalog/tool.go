package catalog

import (
	"fmt"
	"strings"
)

// Tool identifies one of the assistant's generation tools
type Tool string

const (
	ToolProspect  Tool = "prospect"
	ToolCallCoach Tool = "call-coach"
	ToolQA        Tool = "qa"
	ToolOutreach  Tool = "outreach"
	ToolObjection Tool = "objection"
	ToolDiscovery Tool = "discovery"
)

// DefaultTool is the tool selected when a session starts
const DefaultTool = ToolProspect

var toolTitles = map[Tool]string{
	ToolProspect:  "Prospect Insights",
	ToolCallCoach: "Call Coach",
	ToolQA:        "Technical Q&A",
	ToolOutreach:  "Outreach Kit",
	ToolObjection: "Objection Handler",
	ToolDiscovery: "Discovery Prep",
}

// All returns every tool in sidebar order
func All() []Tool {
	return []Tool{
		ToolProspect,
		ToolCallCoach,
		ToolQA,
		ToolOutreach,
		ToolObjection,
		ToolDiscovery,
	}
}

// Parse resolves a tool identifier
func Parse(s string) (Tool, error) {
	t := Tool(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := toolTitles[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
	return t, nil
}

// Valid reports whether t is a known tool
func (t Tool) Valid() bool {
	_, ok := toolTitles[t]
	return ok
}

// Title returns the human-readable tool name
func (t Tool) Title() string {
	if title, ok := toolTitles[t]; ok {
		return title
	}
	return string(t)
}

// Structured reports whether the tool's output is constrained by a JSON schema.
// Only the Q&A tool returns free text with grounding sources.
func (t Tool) Structured() bool {
	return t != ToolQA
}

func (t Tool) String() string {
	return string(t)
}
