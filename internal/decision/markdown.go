package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Verdict as a standalone Markdown section.
func RenderMarkdown(v *Verdict) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Recommendation: %s\n\n", v.Recommendation))
	sb.WriteString(RenderChecklist(v))

	return sb.String()
}

// RenderChecklist renders the criteria table without a heading so callers
// embedding the checklist under their own section keep control of levels.
func RenderChecklist(v *Verdict) string {
	var sb strings.Builder

	sb.WriteString("| # | Criterion | Threshold | Actual | Result |\n")
	sb.WriteString("|---|-----------|-----------|--------|--------|\n")
	for i, c := range v.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", v.PassedCount(), len(v.Criteria)))

	if v.PassedCount() < len(v.Criteria) {
		sb.WriteString("Held back by:\n")
		for _, c := range v.Criteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
