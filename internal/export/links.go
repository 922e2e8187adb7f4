// Package export turns tool results into things that leave the app:
// compose links, activity log lines and clipboard text.
package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

const (
	gmailComposeBase   = "https://mail.google.com/mail/?view=cm&fs=1"
	linkedInSearchBase = "https://www.linkedin.com/search/results/people/"
)

// encodeComponent escapes s for a query value, spaces as %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// GmailComposeURL opens a Gmail draft addressed to recipient
func GmailComposeURL(recipient, subject, body string) string {
	return gmailComposeBase +
		"&to=" + encodeComponent(recipient) +
		"&su=" + encodeComponent(subject) +
		"&body=" + encodeComponent(body)
}

// LinkedInSearchURL searches LinkedIn people for the company
func LinkedInSearchURL(company string) string {
	return linkedInSearchBase + "?keywords=" + encodeComponent(company)
}

// ActivityLog is the CRM note for a sent outreach step
func ActivityLog(step catalog.OutreachStep, company string) string {
	return fmt.Sprintf("Logged %s: Sent '%s' to %s.", step.Type, step.Title, company)
}

// StepLinks returns the actionable links for one step. Email steps get a
// compose link only when a recipient is known; LinkedIn steps get a search link.
func StepLinks(step catalog.OutreachStep, in catalog.OutreachInput) map[string]string {
	links := map[string]string{}
	switch step.Type {
	case catalog.StepEmail:
		if strings.TrimSpace(in.RecipientEmail) != "" {
			links["gmail"] = GmailComposeURL(strings.TrimSpace(in.RecipientEmail), step.Title, step.Content)
		}
	case catalog.StepLinkedIn:
		links["linkedin"] = LinkedInSearchURL(in.Company)
	}
	return links
}
