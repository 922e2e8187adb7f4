package ui

import (
	"strings"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

var submitLabels = map[catalog.Tool]string{
	catalog.ToolProspect:  "Analyze Prospect",
	catalog.ToolCallCoach: "Coach My Call",
	catalog.ToolQA:        "Get Answer",
	catalog.ToolOutreach:  "Generate Outreach Kit",
	catalog.ToolObjection: "Generate Response",
	catalog.ToolDiscovery: "Prepare for Call",
}

// SubmitLabel is the action name shown under a tool's form
func SubmitLabel(tool catalog.Tool) string {
	if label, ok := submitLabels[tool]; ok {
		return label
	}
	return "Generate"
}

// DemoValues returns the sample values a tool's form starts with
func DemoValues(tool catalog.Tool) map[string]string {
	src := demoValues[tool]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var demoValues = map[catalog.Tool]map[string]string{
	catalog.ToolProspect:  {"profileText": demoProfile},
	catalog.ToolCallCoach: {"transcript": demoTranscript},
	catalog.ToolQA:        {"question": "What are the exact video and audio bitrate limits for Vimeo OTT streaming?"},
	catalog.ToolOutreach: {
		"role":           "Marketing Manager",
		"company":        "InnovateCorp",
		"recipientEmail": "sarah.d@innovatecorp.com",
		"product":        "Vimeo Enterprise",
		"painPoint":      "low employee engagement on internal video communications",
		"valueProp":      "securely centralizing all video content to boost collaboration and knowledge sharing",
	},
	catalog.ToolObjection: {
		"objection": "We already use another video platform and we're happy with it.",
		"context":   "This was said during an initial discovery call after I introduced Vimeo as a potential solution for their internal training videos.",
	},
	catalog.ToolDiscovery: {
		"company": "Global Solutions Inc.",
		"role":    "VP of Human Resources",
		"goals":   "Looking to improve their onboarding process for remote employees and create a more consistent training experience.",
	},
}

var demoTranscript = strings.Join([]string{
	">>Arthur Shalagin\t00:00",
	"Hello? Who is this? Hey, Alex. It's Arthur with Vimeo.",
	"",
	">>Customer\t00:07",
	"Hi, Arthur. Yeah, I've got a packed schedule. What's this about?",
	"",
	">>Arthur Shalagin\t00:13",
	"So, I saw that you're heading up digital content at Upfaith and Family. I was wondering how you guys are thinking about monetizing it.",
	"",
	">>Customer\t00:24",
	"We're on Vimeo OTT. We've had good subscriber growth, so that side's under control. Sorry, can you get to the point? I just don't have much time right now.",
	"",
	">>Arthur Shalagin\t00:34",
	"I see that you're on our self -serve product, which puts you into some limitations. I wanted to set up a call because as you guys scale, I want to make sure that you can take full advantage of the platform and scale for growth. Is this something you might be open to?",
	"",
	">>Customer\t00:55",
	"Honestly, I'm not sure. We already have a pretty heavy investment in our current setup. And unless you've got something that solves a really pressing issue, I don't know if this is a priority. Can you just tell me what exactly you're offering? I really can't do another call unless it's absolutely necessary.",
	"",
}, "\n")

const demoProfile = `Agatha Asch
CMO of Marketing Dream Teams Award-Winning Marketing That Grows Business & Brands
New York City Metropolitan Area

Summary
Creative, agile CMO and servant-leader with a passion for building high-trust teams and bold marketing that moves brands—and industries—forward.
As a marketing executive and ad agency veteran with two decades of leadership, I'm passionate about helping fast-growing companies scale through omnichannel programs that drive brand affinity, customer advocacy, and revenue growth.
As Chief Marketing Officer at DoorLoop, I lead a global marketing team spanning brand, demand, product marketing, content, and communications—partnering closely with product, sales, and customer success to drive sustainable growth and long-term customer love.
Previously, I held global marketing leadership roles at iCIMS and ABC Fitness, where I built and scaled regional teams, repositioned brands, and launched integrated programs that fueled growth across enterprise and midmarket segments. Earlier in my career, I worked in brand strategy at leading ad agencies—shaping how I approach storytelling, differentiation, and emotional connection, even in performance-driven environments.

Experience
DoorLoop
Chief Marketing Officer
2025 - Present (less than a year)
Leading DoorLoop's global marketing team, supporting brand, demand, performance, product marketing, content, and communications professionals.

ABC Fitness
Global Marketing Vice President
2023 - 2025 (2 years)
Led the global marketing and communications team for the world's largest fitness technology provider.

iCIMS
Vice President, Global Brand & Growth Marketing
2021 - 2023 (2 years)
Led a team of 20+ marketers across North America and Europe for a global, PE-backed tech leader. Evolving the HR SaaS company's brand, content marketing, and web performance departments.

Awards:
Cannes Cyber Lion Award - Old Spice Marketing Campaign
Finalist @ Shorty Awards - Oreo Superbowl Marketing Campaign
`
