package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sevigo/diff-scout/internal/config"
	"github.com/sevigo/diff-scout/internal/core"
	"github.com/sevigo/diff-scout/internal/gitutil"
)

var (
	localBase     string
	localStaged   bool
	localDiffFile string
	localContext  string
)

var localCmd = &cobra.Command{
	Use:   "local [path]",
	Short: "Review uncommitted or branch work in a local repository",
	Long: `Review local changes without GitHub.

By default the working tree is diffed against the merge base with the target
branch. --staged reviews only the index, and --diff-file reviews a unified
diff read from a file (or stdin with "-").

Examples:
  scout local
  scout local --base develop ./path/to/repo
  scout local --staged
  git diff | scout local --diff-file -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocal,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	localCmd.Flags().StringVar(&localBase, "base", "main", "Branch to diff against (merge-base semantics)")
	localCmd.Flags().BoolVar(&localStaged, "staged", false, "Review only the staged changes")
	localCmd.Flags().StringVar(&localDiffFile, "diff-file", "", "Read a unified diff from a file, or - for stdin")
	localCmd.Flags().StringVar(&localContext, "context", "", "Extra context handed to the model alongside the diff")
	rootCmd.AddCommand(localCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	repoPath := "."
	if len(args) == 1 {
		repoPath = args[0]
	}

	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := cliLogger(cfg)

	diff, source, err := localDiff(ctx, repoPath, log)
	if err != nil {
		return err
	}

	titleColor.Println("🔍 Diff Scout - Local Review")
	dimColor.Printf("   Source: %s\n\n", source)

	inv, cleanup, err := newInvoker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	res := inv.Review(ctx, &core.ReviewRequest{
		RepoFullName: localRepoName(repoPath),
		Diff:         diff,
		Config:       loadLocalRepoConfig(repoPath, log),
		Context:      localContext,
	})
	if !res.Success {
		errorColor.Printf("✗ Review failed (%s)\n", res.ErrorKind)
		return fmt.Errorf("review failed: %w", res.Err)
	}

	fmt.Println(renderMarkdown(res.Comment))
	return nil
}

// localDiff produces the unified diff for the selected mode and a short
// description of where it came from.
func localDiff(ctx context.Context, repoPath string, log *slog.Logger) (string, string, error) {
	switch {
	case localDiffFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read diff from stdin: %w", err)
		}
		return string(data), "stdin", nil

	case localDiffFile != "":
		data, err := os.ReadFile(localDiffFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to read diff file: %w", err)
		}
		return string(data), localDiffFile, nil

	case localStaged:
		diff, err := gitutil.NewClient(log).StagedDiff(ctx, repoPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to diff the index: %w", err)
		}
		return diff, "staged changes", nil

	default:
		diff, err := gitutil.NewClient(log).DiffSinceBranch(ctx, repoPath, localBase)
		if err != nil {
			return "", "", fmt.Errorf("failed to diff against %s: %w", localBase, err)
		}
		return diff, fmt.Sprintf("changes since %s", localBase), nil
	}
}

// loadLocalRepoConfig reads the optional .diff-scout.yml of the repository
// under review. A missing file is normal.
func loadLocalRepoConfig(repoPath string, log *slog.Logger) *core.RepoConfig {
	repoCfg, err := config.LoadRepoConfig(repoPath)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			log.Warn("could not parse repository config, using defaults", "error", err)
		}
		return core.DefaultRepoConfig()
	}
	return repoCfg
}

func localRepoName(repoPath string) string {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "local/project"
	}
	return "local/" + filepath.Base(abs)
}
