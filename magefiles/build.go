//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for mdrimport using Mage.
//
// Usage:
//
//	mage build             Compile the mdrimport binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests
//	mage test:integration  Build, then run the integration tests
//	mage test:postgres     Run the integration tests against PostgreSQL
//	mage lint              Run go vet and golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install mdrimport to GOPATH/bin
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "mdrimport"
	binaryDir  = "bin"
	cmdDir     = "./cmd/mdrimport"
	versionVar = "github.com/mesh-intelligence/mdrimport/internal/cli.Version"
)

// ldflags stamps the version from the MDRIMPORT_VERSION env var or the
// nearest git tag.
func ldflags() string {
	version := os.Getenv("MDRIMPORT_VERSION")
	if version == "" {
		out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
		if err != nil {
			return ""
		}
		version = strings.TrimPrefix(out, "v")
	}
	return "-X " + versionVar + "=" + version
}

// Build compiles the mdrimport binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if flags := ldflags(); flags != "" {
		args = append(args, "-ldflags", flags)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
