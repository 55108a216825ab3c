// Package gitmeta reads the repository revision and submodule status that
// reports embed verbatim.
package gitmeta

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// UnknownRevision is reported when the revision cannot be read.
const UnknownRevision = "unknown"

// Metadata is the repository state embedded in the report header.
type Metadata struct {
	Revision   string   `json:"revision"`
	Submodules []string `json:"submodules"`
}

// Git runs read-only queries through the git CLI.
type Git struct {
	gitPath string
}

// NewGit locates the git executable.
func NewGit() (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}
	return &Git{gitPath: gitPath}, nil
}

// Revision returns the commit id of HEAD.
func (g *Git) Revision(ctx context.Context, repoPath string) (string, error) {
	out, err := g.run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Submodules returns the trimmed lines of `git submodule status --recursive`.
func (g *Git) Submodules(ctx context.Context, repoPath string) ([]string, error) {
	out, err := g.run(ctx, repoPath, "submodule", "status", "--recursive")
	if err != nil {
		return nil, err
	}
	return parseStatusLines(out), nil
}

func (g *Git) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, append([]string{"-C", repoPath}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed in %s: %w", strings.Join(args, " "), repoPath, err)
	}
	return string(output), nil
}

func parseStatusLines(out string) []string {
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Describe collects Metadata for repoPath. Failures are logged and degrade
// to UnknownRevision and an empty submodule list; they never abort a report.
func Describe(ctx context.Context, repoPath string, logger *slog.Logger) Metadata {
	if logger == nil {
		logger = slog.Default()
	}
	meta := Metadata{Revision: UnknownRevision, Submodules: []string{}}

	g, err := NewGit()
	if err != nil {
		logger.Warn("repository metadata unavailable", "error", err)
		return meta
	}
	if rev, err := g.Revision(ctx, repoPath); err != nil {
		logger.Warn("reading revision", "error", err)
	} else if rev != "" {
		meta.Revision = rev
	}
	if subs, err := g.Submodules(ctx, repoPath); err != nil {
		logger.Warn("reading submodule status", "error", err)
	} else {
		meta.Submodules = subs
	}
	return meta
}
