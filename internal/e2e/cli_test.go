package e2e

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/policy"
)

func TestCLIRunAndCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the rtl-inventory binary")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}

	repoRoot := findRepoRoot(t)
	bin := buildBinary(t, repoRoot)

	tree := t.TempDir()
	writeTree(t, tree, designTree)
	home := t.TempDir()
	env := append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
	)

	t.Run("run", func(t *testing.T) {
		stdout, _, err := runCLI(t, bin, tree, env, "run", "--project", "Demo")
		require.NoError(t, err)
		assert.Contains(t, stdout, "rtl_files=6\n")
		assert.Contains(t, stdout, "modules=6\n")
		assert.Contains(t, stdout, "records=6\n")
		for _, rel := range []string{
			"docs/rtl_modules_index.csv",
			"docs/rtl_modules_index.json",
			"docs/rtl_modules_by_subsystem.md",
			"docs/rtl_modules_by_subsystem.csv",
		} {
			assert.FileExists(t, filepath.Join(tree, filepath.FromSlash(rel)))
		}
	})

	t.Run("check", func(t *testing.T) {
		stdout, _, err := runCLI(t, bin, tree, env, "check", "--json")
		require.NoError(t, err)
		var result policy.Result
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.Equal(t, 1, result.Summary.Info)

		_, _, err = runCLI(t, bin, tree, env, "check", "--fail-on", "info")
		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr), "want non-zero exit, got %v", err)
		assert.Equal(t, 1, exitErr.ExitCode())
	})

	t.Run("impact", func(t *testing.T) {
		stdout, _, err := runCLI(t, bin, tree, env, "impact", "VX_core")
		require.NoError(t, err)
		assert.Contains(t, stdout, "level 1 (1): VX_socket")
		assert.Contains(t, stdout, "level 2 (1): VX_cluster")
	})

	t.Run("index contract", func(t *testing.T) {
		indexPath := filepath.Join(tree, "docs", "rtl_modules_index.json")
		require.NoError(t, os.WriteFile(indexPath, []byte(`{"modules_total": 3, "modules": []}`), 0o644))
		for _, args := range [][]string{{"check"}, {"impact", "VX_core"}, {"report"}} {
			_, stderr, err := runCLI(t, bin, tree, env, args...)
			require.Error(t, err, "%v", args)
			assert.Contains(t, stderr, "index contract violation", "%v", args)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		_, _, err := runCLI(t, bin, tree, env, "index", "--repo-root", filepath.Join(tree, "nope"))
		require.Error(t, err)
	})
}

func runCLI(t *testing.T, bin, dir string, env []string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("rtl-inventory %v: %v\nstderr:\n%s", args, err, stderr.String())
	}
	return stdout.String(), stderr.String(), err
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "rtl-inventory")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/rtl-inventory")
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build rtl-inventory failed: %v\n%s", err, string(out))
	}
	return binPath
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "cmd", "rtl-inventory", "main.go")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
