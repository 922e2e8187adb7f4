package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Output is the typed result of one tool. The variant always matches the tool that produced it.
type Output interface {
	Tool() Tool
}

// OutreachEmail is a subject/body pair suggested for first contact
type OutreachEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ProspectAnalysis is the briefing produced from a prospect's profile
type ProspectAnalysis struct {
	Summary                string        `json:"summary"`
	VimeoRelevance         string        `json:"vimeo_relevance"`
	Icebreakers            []string      `json:"icebreakers"`
	KeyTalkingPoints       []string      `json:"key_talking_points"`
	SuggestedOutreachEmail OutreachEmail `json:"suggested_outreach_email"`
}

// KeyMoment is one annotated excerpt of a call transcript
type KeyMoment struct {
	TranscriptSnippet string `json:"transcript_snippet"`
	TacticUsed        string `json:"tactic_used"`
	Feedback          string `json:"feedback"`
}

// CallAnalysis is the coaching feedback for a call transcript
type CallAnalysis struct {
	OverallFeedback        string      `json:"overall_feedback"`
	KeyMomentsAnalysis     []KeyMoment `json:"key_moments_analysis"`
	ActionableImprovements []string    `json:"actionable_improvements"`
}

// StepType is the channel of an outreach step
type StepType string

const (
	StepEmail    StepType = "Email"
	StepLinkedIn StepType = "LinkedIn"
	StepCall     StepType = "Call"
)

// StepTypes returns the allowed outreach step channels
func StepTypes() []StepType {
	return []StepType{StepEmail, StepLinkedIn, StepCall}
}

// OutreachStep is one touch in an outreach sequence
type OutreachStep struct {
	Type         StepType `json:"type"`
	Title        string   `json:"title"`
	Instructions string   `json:"instructions"`
	Content      string   `json:"content"`
}

// OutreachKit is a multi-channel outreach sequence
type OutreachKit struct {
	Sequence []OutreachStep `json:"sequence"`
}

// ObjectionResponse is a strategy for answering a prospect's objection
type ObjectionResponse struct {
	TalkingPoints     []string `json:"talking_points"`
	SuggestedResponse string   `json:"suggested_response"`
}

// DiscoveryPrep is a prep sheet for a discovery call
type DiscoveryPrep struct {
	ResearchSummary     string   `json:"research_summary"`
	KeyQuestions        []string `json:"key_questions"`
	PotentialPainPoints []string `json:"potential_pain_points"`
}

// GroundingSource is a web citation backing a Q&A answer
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// QAResponse is a free-text answer with the sources it was grounded on
type QAResponse struct {
	Answer  string            `json:"answer"`
	Sources []GroundingSource `json:"sources"`
}

func (ProspectAnalysis) Tool() Tool  { return ToolProspect }
func (CallAnalysis) Tool() Tool      { return ToolCallCoach }
func (QAResponse) Tool() Tool        { return ToolQA }
func (OutreachKit) Tool() Tool       { return ToolOutreach }
func (ObjectionResponse) Tool() Tool { return ToolObjection }
func (DiscoveryPrep) Tool() Tool     { return ToolDiscovery }

// DecodeOutput decodes a structured model response into the tool's output variant.
// The Q&A tool has no structured output and is rejected here.
func DecodeOutput(tool Tool, data []byte) (Output, error) {
	var out Output
	var err error

	switch tool {
	case ToolProspect:
		var v ProspectAnalysis
		err = decodeStrict(data, &v)
		out = v
	case ToolCallCoach:
		var v CallAnalysis
		err = decodeStrict(data, &v)
		out = v
	case ToolOutreach:
		var v OutreachKit
		err = decodeStrict(data, &v)
		out = v
	case ToolObjection:
		var v ObjectionResponse
		err = decodeStrict(data, &v)
		out = v
	case ToolDiscovery:
		var v DiscoveryPrep
		err = decodeStrict(data, &v)
		out = v
	case ToolQA:
		return nil, fmt.Errorf("%w: %s has no structured output", ErrToolMismatch, tool)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}
