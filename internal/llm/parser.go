package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/diff-scout/internal/core"
)

var (
	// Matches: ## [path/to/file.go:123] critical: Title
	// The path match is greedy up to the last colon so Windows paths survive.
	findingHeaderRegex = regexp.MustCompile(`(?i)^##\s+\[(.*):\s*(\d+)\]\s*([a-z_]+)\s*:\s*(.+)$`)
)

// ParseReview extracts a structured review from the model's Markdown output.
// It tolerates the usual model quirks:
//   - response wrapped in a ``` fence
//   - inconsistent heading casing
//   - missing sections (only the summary is strictly required)
func ParseReview(markdown string) (*core.Review, error) {
	markdown = stripMarkdownFence(markdown)

	review := &core.Review{}
	lines := strings.Split(markdown, "\n")

	var section string
	var current *core.Finding
	var bodyBuilder strings.Builder
	var summaryBuilder strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(bodyBuilder.String())
		bodyBuilder.Reset()
		review.Findings = append(review.Findings, *current)
		current = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "# SUMMARY"):
			flush()
			section = "SUMMARY"
			continue
		case strings.HasPrefix(upper, "# VERDICT"):
			flush()
			section = "VERDICT"
			continue
		case strings.HasPrefix(upper, "# FINDINGS"):
			flush()
			section = "FINDINGS"
			continue
		case strings.HasPrefix(upper, "# POSITIVE"):
			flush()
			section = "POSITIVE"
			continue
		}

		if strings.HasPrefix(line, "## ") && (section == "FINDINGS" || section == "FINDING_BODY") {
			flush()
			if m := findingHeaderRegex.FindStringSubmatch(line); len(m) == 5 {
				lineNum, _ := strconv.Atoi(m[2])
				current = &core.Finding{
					FilePath: strings.TrimSpace(m[1]),
					Line:     lineNum,
					Severity: normalizeSeverity(m[3]),
					Title:    strings.TrimSpace(m[4]),
				}
			} else {
				// Header exists but did not match; keep the text rather
				// than dropping the finding.
				current = &core.Finding{
					FilePath: "unknown",
					Severity: core.SeverityWarning,
					Title:    strings.TrimSpace(strings.TrimPrefix(line, "##")),
				}
			}
			section = "FINDING_BODY"
			continue
		}

		switch section {
		case "SUMMARY":
			if line != "" && !strings.HasPrefix(line, "#") {
				if summaryBuilder.Len() > 0 {
					summaryBuilder.WriteString("\n")
				}
				summaryBuilder.WriteString(line)
			}
		case "VERDICT":
			if line != "" && !strings.HasPrefix(line, "#") && review.Verdict == "" {
				review.Verdict = normalizeVerdict(line)
			}
		case "FINDING_BODY":
			if line != "" || bodyBuilder.Len() > 0 {
				bodyBuilder.WriteString(raw + "\n")
			}
		case "POSITIVE":
			if item := strings.TrimSpace(strings.TrimLeft(line, "-* ")); item != "" && !strings.HasPrefix(line, "#") {
				review.Positives = append(review.Positives, item)
			}
		}
	}

	flush()
	review.Summary = summaryBuilder.String()
	if review.Verdict == "" {
		review.Verdict = "comment"
	}

	if review.Summary == "" && len(review.Findings) == 0 {
		return nil, fmt.Errorf("failed to parse review: no recognized sections found")
	}
	return review, nil
}

// normalizeSeverity maps the model's severity word onto the three known
// levels. Unrecognized words become warnings.
func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case core.SeverityCritical, "high", "blocker", "error":
		return core.SeverityCritical
	case core.SeverityWarning, "medium", "warn":
		return core.SeverityWarning
	case core.SeveritySuggestion, "low", "nit", "info":
		return core.SeveritySuggestion
	default:
		return core.SeverityWarning
	}
}

func normalizeVerdict(s string) string {
	v := strings.ToLower(strings.TrimSpace(strings.Trim(s, "*`")))
	switch {
	case strings.Contains(v, "approve"):
		return "approve"
	case strings.Contains(v, "request_changes"), strings.Contains(v, "request changes"):
		return "request_changes"
	default:
		return "comment"
	}
}

// stripMarkdownFence removes a ``` wrapper some models put around the whole
// response.
func stripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return s
	}
	inner := trimmed[idx+1:]
	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}
