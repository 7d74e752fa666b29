// Package toolchain drives the external programs that turn LaTeX into a
// checked PDF: xelatex for typesetting and pdfinfo for the quality gate.
package toolchain

import (
	"context"
	"os/exec"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)

	// Run executes name in dir and returns combined stdout and stderr.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

var defaultExec = &osExecutor{}

// maxOutput bounds how much tool output is kept in error messages.
const maxOutput = 4096

// tail returns at most the last maxOutput bytes of out.
func tail(out []byte) string {
	if len(out) > maxOutput {
		out = out[len(out)-maxOutput:]
	}
	return string(out)
}
