// Package prompt turns validated tool inputs into provider-neutral generation requests.
package prompt

import (
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// Preamble is the persona and knowledge scope attached to every structured tool
const Preamble = `You are an expert sales AI and strategic coach for Vimeo. Your knowledge base is exclusively trained on Vimeo's internal sales strategies, which are heavily based on Chris Voss's "Never Split the Difference" negotiation framework (emphasizing Tactical Empathy, Labeling, Mirroring, and Calibrated Questions). You also have deep knowledge of Vimeo's customer success stories (e.g., Santander, Rite Aid, Starbucks, Wise), recent Q3'24 win/loss reports, product deep-dives, and official sales glossaries. Your responses must reflect this specific training, providing strategic, empathetic, and actionable advice.`

// Request is a composed generation request for one tool
type Request struct {
	Tool            catalog.Tool       `json:"tool"`
	SystemPreamble  string             `json:"system_preamble,omitempty"`
	UserPrompt      string             `json:"user_prompt"`
	OutputSchema    *jsonschema.Schema `json:"output_schema,omitempty"`
	UseWebGrounding bool               `json:"use_web_grounding"`
}

// FullPrompt returns the preamble and user prompt joined as a single message
func (r Request) FullPrompt() string {
	if r.SystemPreamble == "" {
		return r.UserPrompt
	}
	return r.SystemPreamble + "\n\n" + r.UserPrompt
}

// Compose builds the request for a validated input. It is pure: equal inputs yield equal requests.
func Compose(in catalog.Input) (Request, error) {
	if in == nil {
		return Request{}, fmt.Errorf("%w: nil input", catalog.ErrUnknownTool)
	}
	spec, err := catalog.SchemaFor(in.Tool())
	if err != nil {
		return Request{}, err
	}

	var body string
	switch v := in.(type) {
	case catalog.ProspectInput:
		body = prospectPrompt(v)
	case catalog.CallCoachInput:
		body = callCoachPrompt(v)
	case catalog.QAInput:
		body = qaPrompt(v)
	case catalog.OutreachInput:
		body = outreachPrompt(v)
	case catalog.ObjectionInput:
		body = objectionPrompt(v)
	case catalog.DiscoveryInput:
		body = discoveryPrompt(v)
	default:
		return Request{}, fmt.Errorf("%w: unsupported input %T", catalog.ErrUnknownTool, in)
	}

	req := Request{
		Tool:       in.Tool(),
		UserPrompt: body,
	}
	if spec.Output.Structured {
		req.SystemPreamble = Preamble
		req.OutputSchema = spec.Output.Schema
	} else {
		req.UseWebGrounding = true
	}
	return req, nil
}

func prospectPrompt(in catalog.ProspectInput) string {
	return lines(
		"Analyze the following resume/LinkedIn profile text to generate a concise, actionable sales briefing. Focus on identifying opportunities where Vimeo's products would be a strong fit, and craft outreach materials that align with the Voss negotiation method.",
		"",
		"**Prospect's Profile Text:**",
		"---",
		in.ProfileText,
		"---",
		"",
		"Generate a JSON object. The outreach email should be framed to start a conversation and uncover pain points, rather than a hard pitch. Use a 'No-oriented' question if appropriate.",
	)
}

func callCoachPrompt(in catalog.CallCoachInput) string {
	return lines(
		"Analyze the following sales call transcript. Provide actionable feedback to the sales rep based on the Voss negotiation framework and Vimeo's sales playbook.",
		"",
		"**Call Transcript:**",
		"---",
		in.Transcript,
		"---",
		"",
		"Generate a JSON object with your analysis. For 'key_moments_analysis', identify specific parts of the transcript, classify the tactic used (or missed), and provide concise feedback. For 'actionable_improvements', suggest 3 concrete steps the rep can take in their next call.",
	)
}

func qaPrompt(in catalog.QAInput) string {
	return lines(
		"You are a senior Vimeo Solutions Engineer. Answer the sales rep's question based *only* on information from the provided Google Search results, which are restricted to official Vimeo domains. Use terminology from the internal Vimeo glossary where appropriate. If the answer isn't in the search results, state that.",
		"",
		"Here is the question:",
		`"`+in.Question+`"`,
	)
}

func outreachPrompt(in catalog.OutreachInput) string {
	return lines(
		"Create a 3-step outreach sequence for a prospect based on the Voss method. The goal is to start a conversation and secure a meeting by building trust and uncovering needs.",
		"",
		"**Prospect Details:**",
		"- Title: "+in.Role,
		"- Company: "+in.Company,
		"",
		"**Vimeo's Solution:**",
		"- Product/Feature: "+in.Product,
		"- Pain Point It Solves: "+in.PainPoint,
		"- Key Value Proposition: "+in.ValueProp,
		"",
		"Generate a sequence with 'Email', 'LinkedIn', and 'Call' steps. Emails should use labels or calibrated questions. LinkedIn steps should focus on rapport-building. Call scripts should be concise openers.",
	)
}

func objectionPrompt(in catalog.ObjectionInput) string {
	return lines(
		"A prospect has raised an objection. Generate a strategy based on the Chris Voss framework to handle it.",
		"",
		"**Prospect's Objection:**",
		`"`+in.Objection+`"`,
		"",
		"**Conversation Context:**",
		in.Context,
		"",
		"Provide a JSON object with:",
		"1.  **Talking Points:** 3-4 bullet points that use Tactical Empathy and Labeling to reframe the objection.",
		"2.  **Suggested Response:** A single paragraph for the rep that is empathetic, uses a Label to validate the prospect's feeling, and ends with a Calibrated Question to regain control of the conversation. Reference customer stories (e.g., Rite Aid increasing town hall attendance by 142%) or win/loss data as proof points where relevant.",
	)
}

func discoveryPrompt(in catalog.DiscoveryInput) string {
	return lines(
		"Create a discovery call prep sheet for a Vimeo AE.",
		"",
		"**Prospect Information:**",
		"- Company: "+in.Company,
		"- Contact Role: "+in.Role,
		"- Stated Goals/Interests: "+in.Goals,
		"",
		"Provide a JSON object with:",
		"1.  **Research Summary:** A brief summary of "+in.Company+" to use as an opener.",
		"2.  **Key Questions:** 5 powerful, Calibrated Questions (starting with 'What' or 'How') to uncover deep needs related to video.",
		"3.  **Potential Pain Points:** 3-4 common challenges for this role/industry that Vimeo solves, based on our customer stories and win/loss data (e.g., 'Consolidating multiple point solutions like Wistia and Frame.io').",
	)
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n")
}
