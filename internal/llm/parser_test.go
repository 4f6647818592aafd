package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/diff-scout/internal/core"
)

const sampleReview = `# SUMMARY
The change adds request validation to the webhook handler.
Overall solid, one real bug.

# VERDICT
request_changes

# FINDINGS
## [internal/server/handler.go:42] critical: Nil pointer on missing header
The request is dereferenced before the nil check. Move the check up.

## [internal/server/handler.go:58] suggestion: Use errors.Is here
String comparison on error messages breaks when the message changes.

# POSITIVE
- Good table-driven tests for the new validation paths.
`

func TestParseReview(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantVerdict  string
		wantFindings int
		expectErr    bool
	}{
		{
			name:         "full review",
			input:        sampleReview,
			wantVerdict:  "request_changes",
			wantFindings: 2,
		},
		{
			name:         "fence wrapped",
			input:        "```markdown\n" + sampleReview + "\n```",
			wantVerdict:  "request_changes",
			wantFindings: 2,
		},
		{
			name: "summary only",
			input: `# SUMMARY
Looks fine.`,
			wantVerdict:  "comment",
			wantFindings: 0,
		},
		{
			name: "lowercase headers and severity alias",
			input: `# summary
Short.

# verdict
Approve

# findings
## [a.go:1] High: Off by one
Loop bound is wrong.`,
			wantVerdict:  "approve",
			wantFindings: 1,
		},
		{
			name:      "plain text without sections",
			input:     "I could not review this diff.",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReview(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, got.Verdict)
			assert.Len(t, got.Findings, tt.wantFindings)
		})
	}
}

func TestParseReviewFindingDetails(t *testing.T) {
	got, err := ParseReview(sampleReview)
	require.NoError(t, err)
	require.Len(t, got.Findings, 2)

	first := got.Findings[0]
	assert.Equal(t, "internal/server/handler.go", first.FilePath)
	assert.Equal(t, 42, first.Line)
	assert.Equal(t, core.SeverityCritical, first.Severity)
	assert.Equal(t, "Nil pointer on missing header", first.Title)
	assert.Contains(t, first.Body, "Move the check up")

	assert.Equal(t, core.SeveritySuggestion, got.Findings[1].Severity)

	assert.Contains(t, got.Summary, "one real bug")
	require.Len(t, got.Positives, 1)
	assert.Contains(t, got.Positives[0], "table-driven tests")
}

func TestParseReviewMalformedFindingHeader(t *testing.T) {
	input := `# SUMMARY
S.

# FINDINGS
## something without the bracket form
Body text.`

	got, err := ParseReview(input)
	require.NoError(t, err)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, "unknown", got.Findings[0].FilePath)
	assert.Equal(t, core.SeverityWarning, got.Findings[0].Severity)
	assert.Contains(t, got.Findings[0].Body, "Body text")
}

func TestParseReviewWindowsPath(t *testing.T) {
	input := `# FINDINGS
## [C:\src\main.go:123] warning: Title
Body.`

	got, err := ParseReview(input)
	require.NoError(t, err)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, `C:\src\main.go`, got.Findings[0].FilePath)
	assert.Equal(t, 123, got.Findings[0].Line)
}

func TestStripMarkdownFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no fence",
			input: "# SUMMARY\nHello",
			want:  "# SUMMARY\nHello",
		},
		{
			name:  "markdown fence",
			input: "```markdown\n# SUMMARY\nHello\n```",
			want:  "# SUMMARY\nHello",
		},
		{
			name:  "trailing content after fence",
			input: "```markdown\nheader\n```\nsome trailing garbage",
			want:  "header",
		},
		{
			name:  "no closing fence",
			input: "```markdown\nheader\nbody",
			want:  "header\nbody",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdownFence(tt.input))
		})
	}
}
