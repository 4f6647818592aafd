package review

import (
	"path"
	"sort"
	"strings"

	"github.com/sevigo/diff-scout/internal/core"
)

// TrimResult is the outcome of fitting a diff into the prompt budget.
type TrimResult struct {
	Diff string

	// Truncated reports that sections were dropped or cut to fit maxBytes.
	Truncated bool

	// Excluded lists files removed by the repository configuration.
	Excluded []string

	// Omitted lists files dropped to fit the budget.
	Omitted []string
}

// diffSection is one file's part of a unified diff.
type diffSection struct {
	path string
	text string
}

// TrimDiff fits a unified diff into maxBytes. Files excluded by the
// repository configuration are always removed. When the rest still exceeds
// the budget, whole sections are dropped in relevance order: lock files and
// generated code first, then non-code files, then the largest code sections.
// A single oversized section is cut at the tail rather than dropped.
// maxBytes <= 0 disables the budget.
func TrimDiff(diff string, repoCfg *core.RepoConfig, maxBytes int) TrimResult {
	sections := splitDiff(diff)

	var result TrimResult
	kept := sections[:0]
	for _, s := range sections {
		if s.path != "" && repoCfg.ExcludesPath(s.path) {
			result.Excluded = append(result.Excluded, s.path)
			continue
		}
		kept = append(kept, s)
	}

	if maxBytes > 0 && totalSize(kept) > maxBytes {
		result.Truncated = true
		kept, result.Omitted = dropToFit(kept, maxBytes)
	}

	var sb strings.Builder
	for _, s := range kept {
		sb.WriteString(s.text)
	}
	result.Diff = strings.TrimRight(sb.String(), "\n")
	if result.Diff != "" {
		result.Diff += "\n"
	}
	return result
}

// splitDiff cuts a unified diff into per-file sections. Text before the first
// header is kept as an unnamed section.
func splitDiff(diff string) []diffSection {
	var sections []diffSection
	var current strings.Builder
	currentPath := ""

	flush := func() {
		if current.Len() == 0 {
			return
		}
		sections = append(sections, diffSection{path: currentPath, text: current.String()})
		current.Reset()
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			currentPath = fileFromHeader(line)
		}
		current.WriteString(line)
	}
	flush()
	return sections
}

// fileFromHeader extracts the new-side path from a "diff --git a/x b/x" line.
func fileFromHeader(header string) string {
	header = strings.TrimRight(header, "\n")
	idx := strings.LastIndex(header, " b/")
	if idx < 0 {
		return ""
	}
	return header[idx+3:]
}

// dropToFit removes sections in relevance order until the rest fits. The
// unnamed preamble section is never dropped. When one section remains and
// still exceeds the budget, its tail is cut.
func dropToFit(sections []diffSection, maxBytes int) ([]diffSection, []string) {
	type candidate struct {
		index int
		class int
		size  int
	}

	var candidates []candidate
	for i, s := range sections {
		if s.path == "" {
			continue
		}
		candidates = append(candidates, candidate{index: i, class: relevanceClass(s.path), size: len(s.text)})
	}
	// Highest class first, largest first within a class.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].class != candidates[j].class {
			return candidates[i].class > candidates[j].class
		}
		return candidates[i].size > candidates[j].size
	})

	dropped := make(map[int]bool)
	var omitted []string
	size := totalSize(sections)
	for _, c := range candidates {
		if size <= maxBytes || len(candidates)-len(dropped) <= 1 {
			break
		}
		dropped[c.index] = true
		omitted = append(omitted, sections[c.index].path)
		size -= c.size
	}

	var kept []diffSection
	for i, s := range sections {
		if dropped[i] {
			continue
		}
		kept = append(kept, s)
	}

	if size > maxBytes {
		kept = cutTail(kept, size-maxBytes)
	}
	return kept, omitted
}

// cutTail shortens the last section by roughly overshoot bytes, on a line
// boundary, and marks the cut.
func cutTail(sections []diffSection, overshoot int) []diffSection {
	if len(sections) == 0 {
		return sections
	}
	last := &sections[len(sections)-1]
	keep := len(last.text) - overshoot
	if keep < 0 {
		keep = 0
	}
	if nl := strings.LastIndex(last.text[:keep], "\n"); nl >= 0 {
		keep = nl + 1
	}
	last.text = last.text[:keep] + "[diff cut here to fit the review budget]\n"
	return sections
}

// relevanceClass orders sections for dropping: 3 = lock or generated files,
// 2 = files that are not code, 1 = code.
func relevanceClass(p string) int {
	if isLockFile(p) || isGeneratedPath(p) {
		return 3
	}
	if !isCodeFile(p) {
		return 2
	}
	return 1
}

func isLockFile(p string) bool {
	switch path.Base(p) {
	case "go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"Cargo.lock", "poetry.lock", "composer.lock", "Gemfile.lock":
		return true
	}
	return false
}

func isGeneratedPath(p string) bool {
	for _, dir := range []string{"vendor/", "node_modules/", "dist/", "third_party/"} {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return true
		}
	}
	for _, suffix := range []string{".pb.go", "_gen.go", ".min.js", ".min.css"} {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func isCodeFile(p string) bool {
	switch path.Ext(p) {
	case ".go", ".js", ".ts", ".tsx", ".jsx", ".py", ".java", ".c", ".cpp",
		".h", ".hpp", ".rs", ".rb", ".php", ".cs", ".swift", ".kt", ".scala",
		".sql", ".sh", ".zig":
		return true
	}
	return false
}

func totalSize(sections []diffSection) int {
	n := 0
	for _, s := range sections {
		n += len(s.text)
	}
	return n
}
