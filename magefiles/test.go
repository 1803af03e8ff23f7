//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration, postgres).
type Test mg.Namespace

// All runs all tests (unit and integration).
func (Test) All() error {
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs only unit tests, excluding the tests/ directory.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") && !strings.HasSuffix(pkg, "/tests") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-v", "-race"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Integration builds first, then runs only integration tests.
func (Test) Integration() error {
	if _, err := os.Stat("tests"); os.IsNotExist(err) {
		fmt.Println("No integration test directory found (tests/).")
		return nil
	}
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "./tests/...")
}

// Postgres runs the integration tests with the PostgreSQL backend enabled.
// It needs MDRIMPORT_TEST_PG_HOST (and optionally _PORT, _USER, _PASSWORD)
// pointing at a server where the test user may create databases.
func (Test) Postgres() error {
	if os.Getenv("MDRIMPORT_TEST_PG_HOST") == "" {
		return fmt.Errorf("MDRIMPORT_TEST_PG_HOST is not set")
	}
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "-run", "Postgres", "./tests/...")
}
