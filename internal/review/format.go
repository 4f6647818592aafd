package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sevigo/diff-scout/internal/core"
)

// CommentOptions carries the rendering context for a posted comment.
type CommentOptions struct {
	Model     string
	Truncated bool

	// Omitted lists files dropped from the diff before the model saw it.
	Omitted []string

	// ValidLines anchors findings to lines the diff actually touches.
	// Findings pointing elsewhere are rendered as general notes. Nil skips
	// the check.
	ValidLines map[string]map[int]struct{}
}

// RenderComment turns a parsed review into the Markdown comment posted on the
// pull request.
func RenderComment(rev *core.Review, opts CommentOptions) string {
	var sb strings.Builder

	if rev.Verdict != "" {
		fmt.Fprintf(&sb, "### %s Verdict: %s\n\n", verdictIcon(rev.Verdict), rev.Verdict)
	} else {
		sb.WriteString("### 📝 Code Review\n\n")
	}

	if rev.Summary != "" {
		sb.WriteString(strings.TrimSpace(rev.Summary))
		sb.WriteString("\n\n")
	}

	anchored, general := partitionFindings(rev.Findings, opts.ValidLines)

	if len(rev.Findings) > 0 {
		writeStatsTable(&sb, rev)
	}

	for _, f := range anchored {
		writeFinding(&sb, f)
	}

	if len(general) > 0 {
		sb.WriteString("#### 📋 General notes\n\n")
		for _, f := range general {
			fmt.Fprintf(&sb, "- %s **%s**", severityEmoji(f.Severity), f.Title)
			if f.FilePath != "" && f.FilePath != "unknown" {
				fmt.Fprintf(&sb, " (`%s`)", f.FilePath)
			}
			if body := strings.TrimSpace(f.Body); body != "" {
				fmt.Fprintf(&sb, " — %s", strings.ReplaceAll(body, "\n", " "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(rev.Positives) > 0 {
		sb.WriteString("#### ✅ What looks good\n\n")
		for _, p := range rev.Positives {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
		sb.WriteString("\n")
	}

	writeTruncationNotice(&sb, opts)
	writeFooter(&sb, opts.Model)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// RawComment wraps unparseable model output so the review is not lost.
func RawComment(content string, opts CommentOptions) string {
	var sb strings.Builder
	sb.WriteString("### 📝 Code Review\n\n")
	sb.WriteString(strings.TrimSpace(content))
	sb.WriteString("\n\n")
	writeTruncationNotice(&sb, opts)
	writeFooter(&sb, opts.Model)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// NeutralComment is posted when a pull request has no reviewable content.
func NeutralComment() string {
	return "### 📝 Code Review\n\n" +
		"This pull request contains no reviewable changes, so there is nothing to review. " +
		"This can happen when a diff is empty or touches only excluded files.\n"
}

// FailureComment is the single notice posted when the review could not be
// produced.
func FailureComment(kind core.ErrorKind) string {
	var reason string
	switch kind {
	case core.KindConfiguration:
		reason = "The reviewer is not configured correctly."
	case core.KindUpstream:
		reason = "The language model could not be reached after several attempts."
	default:
		reason = "An internal error interrupted the review."
	}
	return "### ⚠️ Review failed\n\n" + reason +
		" The trigger comment was received; comment the trigger phrase again to retry.\n"
}

// partitionFindings separates findings the diff can anchor from those
// pointing at untouched lines. Order within each group is severity first,
// then input order.
func partitionFindings(findings []core.Finding, validLines map[string]map[int]struct{}) (anchored, general []core.Finding) {
	for _, f := range findings {
		if isAnchored(f, validLines) {
			anchored = append(anchored, f)
		} else {
			general = append(general, f)
		}
	}
	bySeverity := func(s []core.Finding) {
		sort.SliceStable(s, func(i, j int) bool {
			return severityRank(s[i].Severity) < severityRank(s[j].Severity)
		})
	}
	bySeverity(anchored)
	bySeverity(general)
	return anchored, general
}

func isAnchored(f core.Finding, validLines map[string]map[int]struct{}) bool {
	if f.FilePath == "" || f.FilePath == "unknown" || f.Line <= 0 {
		return false
	}
	if validLines == nil {
		return true
	}
	lines, ok := validLines[f.FilePath]
	if !ok {
		return false
	}
	_, ok = lines[f.Line]
	return ok
}

func writeStatsTable(sb *strings.Builder, rev *core.Review) {
	counts := rev.CountBySeverity()
	sb.WriteString("| Severity | Count |\n")
	sb.WriteString("|----------|-------|\n")
	for _, sev := range []string{core.SeverityCritical, core.SeverityWarning, core.SeveritySuggestion} {
		if n := counts[sev]; n > 0 {
			fmt.Fprintf(sb, "| %s %s | %d |\n", severityEmoji(sev), sev, n)
		}
	}
	sb.WriteString("\n")
}

func writeFinding(sb *strings.Builder, f core.Finding) {
	fmt.Fprintf(sb, "#### %s [`%s:%d`] %s\n\n", severityEmoji(f.Severity), f.FilePath, f.Line, f.Title)
	writeAlertBlock(sb, severityAlert(f.Severity), f.Body)
	sb.WriteString("\n")
}

// writeAlertBlock renders body inside a GitHub alert. Fenced code blocks
// break out of the quote because alerts do not render fences well.
func writeAlertBlock(sb *strings.Builder, alertType, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}

	insideAlert := false
	inCodeBlock := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock = !inCodeBlock
			insideAlert = false
			sb.WriteString(line + "\n")
			continue
		}
		if inCodeBlock {
			sb.WriteString(line + "\n")
			continue
		}

		// Strip one pre-existing quote level to avoid "> >".
		if strings.HasPrefix(trimmed, ">") {
			line = strings.TrimPrefix(strings.TrimPrefix(line, ">"), " ")
			trimmed = strings.TrimSpace(line)
		}

		if !insideAlert && trimmed != "" {
			fmt.Fprintf(sb, "> [!%s]\n", alertType)
			insideAlert = true
		}
		if insideAlert {
			if trimmed == "" {
				sb.WriteString(">\n")
			} else {
				fmt.Fprintf(sb, "> %s\n", line)
			}
		}
	}
}

func writeTruncationNotice(sb *strings.Builder, opts CommentOptions) {
	if !opts.Truncated {
		return
	}
	sb.WriteString("> [!NOTE]\n> The diff was too large to review in full.")
	if len(opts.Omitted) > 0 {
		files := opts.Omitted
		const maxListed = 10
		if len(files) > maxListed {
			files = append(append([]string{}, files[:maxListed]...), fmt.Sprintf("and %d more", len(opts.Omitted)-maxListed))
		}
		fmt.Fprintf(sb, " Omitted: %s.", strings.Join(files, ", "))
	}
	sb.WriteString("\n\n")
}

func writeFooter(sb *strings.Builder, model string) {
	if model == "" {
		return
	}
	fmt.Fprintf(sb, "<sub>Diff Scout Review · %s</sub>\n", model)
}

func severityRank(severity string) int {
	switch severity {
	case core.SeverityCritical:
		return 0
	case core.SeverityWarning:
		return 1
	case core.SeveritySuggestion:
		return 2
	default:
		return 3
	}
}

// severityEmoji returns the marker for a severity level.
func severityEmoji(severity string) string {
	switch severity {
	case core.SeverityCritical:
		return "🔴"
	case core.SeverityWarning:
		return "🟡"
	case core.SeveritySuggestion:
		return "🟢"
	default:
		return "⚪"
	}
}

// severityAlert maps a severity to a GitHub alert type.
func severityAlert(severity string) string {
	switch severity {
	case core.SeverityCritical:
		return "CAUTION"
	case core.SeverityWarning:
		return "WARNING"
	case core.SeveritySuggestion:
		return "TIP"
	default:
		return "NOTE"
	}
}

// verdictIcon returns the icon shown next to the verdict heading.
func verdictIcon(verdict string) string {
	switch strings.ToLower(strings.TrimSpace(verdict)) {
	case "approve":
		return "✅"
	case "request_changes", "request changes":
		return "🚫"
	case "comment":
		return "💬"
	default:
		return "📝"
	}
}
