//go:build mage

// Package main contains Mage build targets for folio developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir       = "bin"
	binName      = "folio"
	cmdPkg       = "./cmd/folio"
	buildinfoPkg = "github.com/matzehuels/folio/pkg/buildinfo"
)

// ldflags stamps version, commit and build date into pkg/buildinfo.
func ldflags() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version, _ = sh.Output("git", "describe", "--tags", "--always", "--dirty")
	}
	commit, _ := sh.Output("git", "rev-parse", "HEAD")
	date := time.Now().UTC().Format(time.RFC3339)
	flags := []string{
		"-s", "-w",
		"-X", buildinfoPkg + ".Version=" + strings.TrimSpace(version),
		"-X", buildinfoPkg + ".Commit=" + strings.TrimSpace(commit),
		"-X", buildinfoPkg + ".Date=" + date,
	}
	return strings.Join(flags, " ")
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", ldflags(), "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests. Tests that need xelatex, pdfinfo or a live
// database skip themselves when the tool or DSN is missing.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestShort runs the tests in -short mode, skipping retries with backoff.
func TestShort() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
