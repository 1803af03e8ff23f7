// Package integration provides CLI integration tests for mdrimport. The
// binary is built once in TestMain and run against SQLite deployments in
// temp directories.
package integration

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

var (
	// mdrimportBin is the path to the built mdrimport binary.
	mdrimportBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetMdrimportBin sets the path to the mdrimport binary (called from TestMain).
func SetMdrimportBin(path string) {
	mdrimportBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv is an isolated deployment: a config directory with config.yaml
// and a data directory holding the SQLite databases.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
	LogDir  string
}

// NewTestEnv creates a TestEnv whose config.yaml points at dataDir.
func NewTestEnv(t *testing.T, dataDir string) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build mdrimport: %v", buildErr)
	}
	if mdrimportBin == "" {
		t.Fatal("mdrimport binary not built (mdrimportBin is empty)")
	}

	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "config")
	logDir := filepath.Join(tempDir, "logs")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	content := "backend: sqlite\ndata_dir: " + dataDir + "\nlog:\n  level: debug\n  dir: " + logDir + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  configDir,
		DataDir: dataDir,
		LogDir:  logDir,
	}
}

// CmdResult holds the result of an mdrimport command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes mdrimport against the environment's config directory.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config}, args...)
	cmd := exec.Command(mdrimportBin, allArgs...)
	cmd.Env = append(os.Environ(), "MDRIMPORT_DATA_DIR=", "MDRIMPORT_CONFIG_DIR=")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("failed to run mdrimport: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun executes mdrimport and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("mdrimport %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseYAML parses YAML output into the target type.
func ParseYAML[T any](t *testing.T, s string) T {
	t.Helper()
	var result T
	if err := yaml.Unmarshal([]byte(s), &result); err != nil {
		t.Fatalf("failed to parse YAML %q: %v", s, err)
	}
	return result
}
