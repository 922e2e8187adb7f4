package export

import (
	"fmt"
	"strings"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// section is a titled block of a rendered result
type section struct {
	title string
	text  string
	items []string
	quote bool
}

// sections lays out a result in display order; in supplies outreach context
func sections(out catalog.Output, in catalog.Input) []section {
	switch o := out.(type) {
	case catalog.ProspectAnalysis:
		return []section{
			{title: "Professional Summary", text: o.Summary},
			{title: "Why Vimeo? (The Angle)", text: o.VimeoRelevance},
			{title: "Icebreakers", items: o.Icebreakers},
			{title: "Key Talking Points", items: o.KeyTalkingPoints},
			{title: "Suggested Outreach Email", text: "Subject: " + o.SuggestedOutreachEmail.Subject + "\n\n" + o.SuggestedOutreachEmail.Body},
		}
	case catalog.CallAnalysis:
		secs := []section{{title: "Overall Feedback", text: o.OverallFeedback}}
		for i, m := range o.KeyMomentsAnalysis {
			secs = append(secs, section{
				title: fmt.Sprintf("Key Moment %d: %s", i+1, m.TacticUsed),
				text:  fmt.Sprintf("%q\n\n%s", m.TranscriptSnippet, m.Feedback),
				quote: true,
			})
		}
		return append(secs, section{title: "Actionable Improvements", items: o.ActionableImprovements})
	case catalog.QAResponse:
		secs := []section{{title: "Answer", text: o.Answer}}
		if len(o.Sources) > 0 {
			items := make([]string, 0, len(o.Sources))
			for _, s := range o.Sources {
				items = append(items, s.Title+" <"+s.URI+">")
			}
			secs = append(secs, section{title: "Sources", items: items})
		}
		return secs
	case catalog.OutreachKit:
		oi, _ := in.(catalog.OutreachInput)
		secs := make([]section, 0, len(o.Sequence))
		for i, step := range o.Sequence {
			text := step.Instructions + "\n\n" + step.Content
			var items []string
			links := StepLinks(step, oi)
			if link, ok := links["gmail"]; ok {
				items = append(items, "Compose in Gmail: "+link)
			}
			if link, ok := links["linkedin"]; ok {
				items = append(items, "Find on LinkedIn: "+link)
			}
			if oi.Company != "" {
				items = append(items, "Activity log: "+ActivityLog(step, oi.Company))
			}
			secs = append(secs, section{
				title: fmt.Sprintf("Step %d (%s): %s", i+1, step.Type, step.Title),
				text:  text,
				items: items,
			})
		}
		return secs
	case catalog.ObjectionResponse:
		return []section{
			{title: "Suggested Response", text: o.SuggestedResponse},
			{title: "Key Talking Points", items: o.TalkingPoints},
		}
	case catalog.DiscoveryPrep:
		return []section{
			{title: "Company Research Summary", text: o.ResearchSummary},
			{title: "Key Discovery Questions", items: o.KeyQuestions},
			{title: "Potential Pain Points to Listen For", items: o.PotentialPainPoints},
		}
	}
	return nil
}

// Markdown renders a result for display
func Markdown(out catalog.Output, in catalog.Input) string {
	var b strings.Builder
	if kit, ok := out.(catalog.OutreachKit); ok && len(kit.Sequence) > 0 {
		b.WriteString("# Your Outreach Sequence\n\n")
	}
	for _, s := range sections(out, in) {
		b.WriteString("## " + s.title + "\n\n")
		if s.text != "" {
			if s.quote {
				b.WriteString("> " + strings.ReplaceAll(s.text, "\n", "\n> ") + "\n\n")
			} else {
				b.WriteString(s.text + "\n\n")
			}
		}
		for _, item := range s.items {
			b.WriteString("- " + item + "\n")
		}
		if len(s.items) > 0 {
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// PlainText renders a result for the clipboard
func PlainText(out catalog.Output, in catalog.Input) string {
	parts := make([]string, 0, 8)
	for _, s := range sections(out, in) {
		var b strings.Builder
		b.WriteString(strings.ToUpper(s.title) + "\n")
		if s.text != "" {
			b.WriteString(s.text + "\n")
		}
		for _, item := range s.items {
			b.WriteString("- " + item + "\n")
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
