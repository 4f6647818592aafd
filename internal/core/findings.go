package core

// Severity buckets a finding into one of the review sections. The model is
// prompted to emit exactly these literals.
const (
	SeverityCritical   = "critical"
	SeverityWarning    = "warning"
	SeveritySuggestion = "suggestion"
)

// Finding represents a single piece of feedback, usually anchored to a file
// and line in the diff. A finding with an empty FilePath is a general remark.
type Finding struct {
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Review is the parsed model output in a renderable format.
type Review struct {
	Summary   string    `json:"summary"`
	Verdict   string    `json:"verdict,omitempty"` // "approve", "request_changes" or "comment"
	Findings  []Finding `json:"findings"`
	Positives []string  `json:"positives,omitempty"`
}

// CountBySeverity tallies findings per severity literal.
func (r *Review) CountBySeverity() map[string]int {
	counts := make(map[string]int, 3)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
