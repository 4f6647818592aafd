package github

import (
	"testing"
)

const samplePatch = `@@ -10,4 +10,6 @@ func run() error {
 	cfg, err := load()
 	if err != nil {
-		return err
+		return fmt.Errorf("load config: %w", err)
 	}
+	defer cleanup()
 	return nil`

func TestParseValidLinesFromPatch(t *testing.T) {
	valid := ParseValidLinesFromPatch(samplePatch, nil)

	// New-side lines 10 through 15 exist after the hunk is applied.
	for line := 10; line <= 15; line++ {
		if _, ok := valid[line]; !ok {
			t.Errorf("line %d should be commentable", line)
		}
	}
	if _, ok := valid[16]; ok {
		t.Error("line 16 is outside the hunk")
	}
}

func TestParseValidLinesFromPatchMalformedHunk(t *testing.T) {
	valid := ParseValidLinesFromPatch("@@ garbage @@\n+added", nil)
	if len(valid) != 0 {
		t.Errorf("malformed hunk header should yield no valid lines, got %v", valid)
	}
}

func TestValidLineMaps(t *testing.T) {
	files := []ChangedFile{
		{Filename: "internal/run.go", Patch: samplePatch},
		{Filename: "assets/logo.png", Patch: ""},
	}

	maps := ValidLineMaps(files, nil)

	if _, ok := maps["internal/run.go"]; !ok {
		t.Fatal("expected line map for internal/run.go")
	}
	if _, ok := maps["assets/logo.png"]; ok {
		t.Error("patchless file should be skipped")
	}
}
