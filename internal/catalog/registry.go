package catalog

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Field describes one free-text form field
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline"`
	Optional    bool   `json:"optional"`
}

// InputSpec is the ordered list of form fields a tool collects
type InputSpec struct {
	Fields []Field `json:"fields"`
}

// Has reports whether the spec declares a field with the given name
func (s InputSpec) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Required returns the names of the non-optional fields in order
func (s InputSpec) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if !f.Optional {
			out = append(out, f.Name)
		}
	}
	return out
}

// OutputSpec describes the expected response shape.
// Schema is nil for tools that return free text.
type OutputSpec struct {
	Structured bool               `json:"structured"`
	Schema     *jsonschema.Schema `json:"schema,omitempty"`
}

// Spec is the input/output contract of a tool
type Spec struct {
	Tool   Tool       `json:"tool"`
	Title  string     `json:"title"`
	Input  InputSpec  `json:"input"`
	Output OutputSpec `json:"output"`
}

var registry = map[Tool]Spec{
	ToolProspect: {
		Tool: ToolProspect,
		Input: InputSpec{Fields: []Field{
			{Name: "profileText", Label: "Prospect's LinkedIn Profile or Resume Text", Placeholder: "Paste the full text from a prospect's LinkedIn profile or resume here...", Multiline: true},
		}},
		Output: OutputSpec{Structured: true, Schema: prospectSchema()},
	},
	ToolCallCoach: {
		Tool: ToolCallCoach,
		Input: InputSpec{Fields: []Field{
			{Name: "transcript", Label: "Sales Call Transcript", Placeholder: "Paste the full call transcript here...", Multiline: true},
		}},
		Output: OutputSpec{Structured: true, Schema: callAnalysisSchema()},
	},
	ToolQA: {
		Tool: ToolQA,
		Input: InputSpec{Fields: []Field{
			{Name: "question", Label: "Your Technical Question", Placeholder: "e.g., How does domain restriction work for embedded videos in Vimeo Enterprise?", Multiline: true},
		}},
		Output: OutputSpec{Structured: false},
	},
	ToolOutreach: {
		Tool: ToolOutreach,
		Input: InputSpec{Fields: []Field{
			{Name: "role", Label: "Prospect's Role"},
			{Name: "company", Label: "Prospect's Company"},
			{Name: "recipientEmail", Label: "Recipient Email (Optional)", Optional: true},
			{Name: "product", Label: "Your Product/Service"},
			{Name: "painPoint", Label: "Pain Point You Solve", Multiline: true},
			{Name: "valueProp", Label: "Key Value Proposition", Multiline: true},
		}},
		Output: OutputSpec{Structured: true, Schema: outreachSchema()},
	},
	ToolObjection: {
		Tool: ToolObjection,
		Input: InputSpec{Fields: []Field{
			{Name: "objection", Label: "Prospect's Objection", Multiline: true},
			{Name: "context", Label: "Conversation Context", Multiline: true},
		}},
		Output: OutputSpec{Structured: true, Schema: objectionSchema()},
	},
	ToolDiscovery: {
		Tool: ToolDiscovery,
		Input: InputSpec{Fields: []Field{
			{Name: "company", Label: "Prospect's Company"},
			{Name: "role", Label: "Prospect's Role"},
			{Name: "goals", Label: "Their Stated Goals/Interests", Multiline: true},
		}},
		Output: OutputSpec{Structured: true, Schema: discoverySchema()},
	},
}

// SchemaFor returns the contract of a tool
func SchemaFor(tool Tool) (Spec, error) {
	spec, ok := registry[tool]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	spec.Title = tool.Title()
	return spec, nil
}

// MustSchemaFor is SchemaFor for tools known to be valid
func MustSchemaFor(tool Tool) Spec {
	spec, err := SchemaFor(tool)
	if err != nil {
		panic(err)
	}
	return spec
}

// Specs returns the contract of every tool in sidebar order
func Specs() []Spec {
	out := make([]Spec, 0, len(registry))
	for _, t := range All() {
		out = append(out, MustSchemaFor(t))
	}
	return out
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func strList(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

// object builds an object schema whose properties are all required, in the given order
func object(desc string, props ...prop) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        "object",
		Description: desc,
		Properties:  make(map[string]*jsonschema.Schema, len(props)),
	}
	for _, p := range props {
		s.Properties[p.name] = p.schema
		s.Required = append(s.Required, p.name)
	}
	return s
}

type prop struct {
	name   string
	schema *jsonschema.Schema
}

func prospectSchema() *jsonschema.Schema {
	return object("",
		prop{"summary", str("A 2-3 sentence professional summary of the person.")},
		prop{"vimeo_relevance", str("A paragraph explaining why this person and their company are a strong potential fit for Vimeo, referencing specific experiences or roles. Use insights from customer stories (e.g., linking marketing leadership to Santander's use case).")},
		prop{"icebreakers", strList("An array of 3 personalized conversation starters specific to their profile.")},
		prop{"key_talking_points", strList("An array of 3 bullet points connecting the prospect's likely challenges to specific Vimeo solutions, informed by our win/loss data.")},
		prop{"suggested_outreach_email", object("",
			prop{"subject", str("A compelling and personalized subject line for a cold outreach email.")},
			prop{"body", str("The full body of a personalized, concise email that uses Voss tactics like labeling or calibrated questions to start a conversation.")},
		)},
	)
}

func callAnalysisSchema() *jsonschema.Schema {
	moments := &jsonschema.Schema{
		Type:        "array",
		Description: "An array analyzing 3-4 key moments from the call.",
		Items: object("",
			prop{"transcript_snippet", str("An exact, brief quote from the transcript illustrating the point.")},
			prop{"tactic_used", str("The name of the tactic used or missed (e.g., 'Labeling', 'Missed Mirroring Opportunity', 'Calibrated Question').")},
			prop{"feedback", str("Concise analysis of why this moment was effective or how it could have been improved.")},
		),
	}
	return object("",
		prop{"overall_feedback", str("A high-level summary of the rep's performance on the call, highlighting strengths and key areas for improvement based on the Voss method.")},
		prop{"key_moments_analysis", moments},
		prop{"actionable_improvements", strList("A list of 3 specific, actionable recommendations for the rep's next call, referencing the Voss framework.")},
	)
}

func outreachSchema() *jsonschema.Schema {
	stepType := str("Type of outreach: 'Email', 'LinkedIn', or 'Call'.")
	for _, t := range StepTypes() {
		stepType.Enum = append(stepType.Enum, string(t))
	}
	return object("",
		prop{"sequence", &jsonschema.Schema{
			Type: "array",
			Items: object("",
				prop{"type", stepType},
				prop{"title", str("The title of the step (e.g., 'Initial Cold Email', 'LinkedIn Connection Request').")},
				prop{"instructions", str("A brief one-sentence instruction for the sales rep.")},
				prop{"content", str("The actual content (email body, LinkedIn message, call script).")},
			),
		}},
	)
}

func objectionSchema() *jsonschema.Schema {
	return object("",
		prop{"talking_points", strList("Key points to address the objection using Voss tactics.")},
		prop{"suggested_response", str("A polished, ready-to-use response for the sales rep.")},
	)
}

func discoverySchema() *jsonschema.Schema {
	return object("",
		prop{"research_summary", str("A brief summary of the prospect's company.")},
		prop{"key_questions", strList("A list of probing, Calibrated Questions for the discovery call.")},
		prop{"potential_pain_points", strList("Potential issues the prospect might be facing, based on internal Vimeo data.")},
	)
}
