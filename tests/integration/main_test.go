package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestMain builds the mdrimport binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "mdrimport-test-*")
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}
	binPath := filepath.Join(tmpDir, "mdrimport")
	SetMdrimportBin(binPath)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/mdrimport")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		SetBuildErr(&BuildError{Err: err, Output: string(output)})
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}
