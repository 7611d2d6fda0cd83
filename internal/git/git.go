package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// HeadCommit returns the commit SHA checked out in dir, or "" when dir is
// not inside a git work tree or git is unavailable.
func HeadCommit(ctx context.Context, dir string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// ChangedFiles lists files under dir that differ from baseRef, including
// untracked ones. Paths are relative to dir.
func ChangedFiles(ctx context.Context, dir, baseRef string) ([]string, error) {
	diff := exec.CommandContext(ctx, "git", "diff", "--name-only", "--relative", baseRef, "--", ".")
	diff.Dir = dir
	output, err := diff.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	changed := parseNameOnly(output)

	untracked := exec.CommandContext(ctx, "git", "ls-files", "--others", "--exclude-standard", "--", ".")
	untracked.Dir = dir
	if out, err := untracked.Output(); err == nil {
		changed = mergePaths(changed, parseNameOnly(out))
	}
	return changed, nil
}

func parseNameOnly(output []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var paths []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, filepath.ToSlash(line))
	}
	return paths
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
