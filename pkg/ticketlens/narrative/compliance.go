package narrative

import (
	"fmt"
	"regexp"
	"strings"
)

// Compliance is the review of a draft article before it reaches agents.
type Compliance struct {
	Passed      bool     `json:"passed"`
	RiskLevel   string   `json:"risk_level"`
	Violations  []string `json:"violations"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
	ChecksRun   []string `json:"checks_run"`
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

var dangerousPhrases = []string{"delete all", "drop table", "rm -rf", "format disk", "bypass security"}

// CheckCompliance scans content for personal data, destructive instructions and
// missing structure. Any violation fails the check.
func CheckCompliance(content string) Compliance {
	c := Compliance{
		Violations:  []string{},
		Warnings:    []string{},
		Suggestions: []string{},
		ChecksRun:   []string{"PII scan", "dangerous instructions", "structural analysis", "completeness check"},
	}
	lower := strings.ToLower(content)

	if emailPattern.MatchString(content) {
		c.Violations = append(c.Violations, "PII: email address detected")
	}
	if phonePattern.MatchString(content) {
		c.Warnings = append(c.Warnings, "Potential phone number detected")
	}
	if ssnPattern.MatchString(content) {
		c.Violations = append(c.Violations, "CRITICAL: SSN pattern detected")
	}
	for _, phrase := range dangerousPhrases {
		if strings.Contains(lower, phrase) {
			c.Violations = append(c.Violations, fmt.Sprintf("Dangerous instruction: %q", phrase))
		}
	}
	if len(content) < 300 {
		c.Warnings = append(c.Warnings, "Article is short and may need more detail for agent use")
	}
	if !strings.Contains(content, "##") {
		c.Warnings = append(c.Warnings, "No section headers, consider adding structure")
	}
	if !strings.Contains(lower, "escalat") {
		c.Suggestions = append(c.Suggestions, "Add escalation criteria section")
	}
	if !strings.Contains(lower, "verif") {
		c.Suggestions = append(c.Suggestions, "Add verification step")
	}
	if !strings.Contains(lower, "prerequisite") && !strings.Contains(lower, "before") {
		c.Suggestions = append(c.Suggestions, "Consider adding prerequisites section")
	}

	c.Passed = len(c.Violations) == 0
	switch {
	case len(c.Violations) > 0:
		c.RiskLevel = "high"
	case len(c.Warnings) > 1:
		c.RiskLevel = "medium"
	default:
		c.RiskLevel = "low"
	}
	return c
}
