package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	defaultTone      = "reflective"
	fallbackTheme    = "legacy"
	maxThemes        = 5
	maxSummaryLength = 500
)

var (
	toneRe    = regexp.MustCompile(`(?i)emotional tone:?\s*(\w+)`)
	themesRe  = regexp.MustCompile(`(?i)themes:?\s*([\s\S]*?)(?:\n\n|\nSummary|$)`)
	summaryRe = regexp.MustCompile(`(?i)summary:?\s*([\s\S]*)$`)
)

// ParseOrExtract turns the model output into an Analysis.
// The primary contract is a strict JSON object. Free text responses are
// handled with pattern extraction as a fallback, missing fields get defaults.
// Never fails - analysis is a best effort enrichment
func ParseOrExtract(content string) *Analysis {
	var res Analysis
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		res = *extract(content)
	}
	if res.EmotionalTone == "" {
		res.EmotionalTone = defaultTone
	}
	if res.Themes == nil {
		res.Themes = []string{}
	}
	if len(res.Themes) > maxThemes {
		res.Themes = res.Themes[:maxThemes]
	}
	return &res
}

// extract pulls tone/themes/summary out of a free text response
func extract(content string) *Analysis {
	res := &Analysis{}
	if m := toneRe.FindStringSubmatch(content); m != nil {
		res.EmotionalTone = m[1]
	}
	if m := themesRe.FindStringSubmatch(content); m != nil {
		for _, t := range strings.Split(m[1], ",") {
			t = strings.TrimPrefix(strings.TrimSpace(t), "- ")
			t = strings.TrimSpace(strings.TrimPrefix(t, "-"))
			if t != "" {
				res.Themes = append(res.Themes, t)
			}
		}
	}
	if res.Themes == nil {
		res.Themes = []string{fallbackTheme}
	}
	if m := summaryRe.FindStringSubmatch(content); m != nil {
		res.Summary = strings.TrimSpace(m[1])
	}
	if res.Summary == "" {
		res.Summary = content
	}
	if r := []rune(res.Summary); len(r) > maxSummaryLength {
		res.Summary = string(r[:maxSummaryLength])
	}
	return res
}
