package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Input is the form payload for one tool. Every variant reports the tool it belongs to.
type Input interface {
	Tool() Tool
	// Values returns the field values keyed by wire name
	Values() map[string]string
}

// ProspectInput is the payload for the prospect tool
type ProspectInput struct {
	ProfileText string `json:"profileText"`
}

// CallCoachInput is the payload for the call coach tool
type CallCoachInput struct {
	Transcript string `json:"transcript"`
}

// QAInput is the payload for the technical Q&A tool
type QAInput struct {
	Question string `json:"question"`
}

// OutreachInput is the payload for the outreach kit tool
type OutreachInput struct {
	Role           string `json:"role"`
	Company        string `json:"company"`
	Product        string `json:"product"`
	PainPoint      string `json:"painPoint"`
	ValueProp      string `json:"valueProp"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
}

// ObjectionInput is the payload for the objection handler tool
type ObjectionInput struct {
	Objection string `json:"objection"`
	Context   string `json:"context"`
}

// DiscoveryInput is the payload for the discovery prep tool
type DiscoveryInput struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Goals   string `json:"goals"`
}

func (ProspectInput) Tool() Tool  { return ToolProspect }
func (CallCoachInput) Tool() Tool { return ToolCallCoach }
func (QAInput) Tool() Tool        { return ToolQA }
func (OutreachInput) Tool() Tool  { return ToolOutreach }
func (ObjectionInput) Tool() Tool { return ToolObjection }
func (DiscoveryInput) Tool() Tool { return ToolDiscovery }

func (in ProspectInput) Values() map[string]string {
	return map[string]string{"profileText": in.ProfileText}
}

func (in CallCoachInput) Values() map[string]string {
	return map[string]string{"transcript": in.Transcript}
}

func (in QAInput) Values() map[string]string {
	return map[string]string{"question": in.Question}
}

func (in OutreachInput) Values() map[string]string {
	return map[string]string{
		"role":           in.Role,
		"company":        in.Company,
		"product":        in.Product,
		"painPoint":      in.PainPoint,
		"valueProp":      in.ValueProp,
		"recipientEmail": in.RecipientEmail,
	}
}

func (in ObjectionInput) Values() map[string]string {
	return map[string]string{
		"objection": in.Objection,
		"context":   in.Context,
	}
}

func (in DiscoveryInput) Values() map[string]string {
	return map[string]string{
		"company": in.Company,
		"role":    in.Role,
		"goals":   in.Goals,
	}
}

// Validate checks that every required field of the input's tool is non-blank
func Validate(in Input) error {
	if in == nil {
		return fmt.Errorf("%w: nil input", ErrUnknownTool)
	}
	spec, err := SchemaFor(in.Tool())
	if err != nil {
		return err
	}

	values := in.Values()
	var missing []string
	for _, f := range spec.Input.Fields {
		if f.Optional {
			continue
		}
		if strings.TrimSpace(values[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Tool: in.Tool(), Missing: missing}
	}
	return nil
}

// DecodeInput builds the input variant for tool from form values.
// Field names must be declared by the tool; absent fields are left empty.
func DecodeInput(tool Tool, values map[string]string) (Input, error) {
	spec, err := SchemaFor(tool)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for name := range values {
		if !spec.Input.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w for %s: %s", ErrUnknownField, tool, strings.Join(unknown, ", "))
	}

	v := func(name string) string { return values[name] }

	switch tool {
	case ToolProspect:
		return ProspectInput{ProfileText: v("profileText")}, nil
	case ToolCallCoach:
		return CallCoachInput{Transcript: v("transcript")}, nil
	case ToolQA:
		return QAInput{Question: v("question")}, nil
	case ToolOutreach:
		return OutreachInput{
			Role:           v("role"),
			Company:        v("company"),
			Product:        v("product"),
			PainPoint:      v("painPoint"),
			ValueProp:      v("valueProp"),
			RecipientEmail: v("recipientEmail"),
		}, nil
	case ToolObjection:
		return ObjectionInput{Objection: v("objection"), Context: v("context")}, nil
	case ToolDiscovery:
		return DiscoveryInput{Company: v("company"), Role: v("role"), Goals: v("goals")}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
}

// DecodeInputJSON builds the input variant for tool from a JSON object of string fields
func DecodeInputJSON(tool Tool, data []byte) (Input, error) {
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s input: %w", tool, err)
	}
	return DecodeInput(tool, values)
}
