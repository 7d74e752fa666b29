package toolchain

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	ferrors "github.com/matzehuels/folio/pkg/errors"
)

const (
	// DefaultEngine is the LaTeX engine binary.
	DefaultEngine = "xelatex"

	// DefaultPasses is the number of engine runs. Two passes resolve page
	// references and the table of contents.
	DefaultPasses = 2
)

// auxExtensions are removed after a successful run.
var auxExtensions = []string{".aux", ".log", ".out", ".toc"}

// Typesetter compiles a .tex file to PDF.
type Typesetter struct {
	Engine string
	Passes int
	Logger *log.Logger
	exec   executor
}

// NewTypesetter creates a Typesetter with default engine and passes.
// A nil logger discards output.
func NewTypesetter(logger *log.Logger) *Typesetter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Typesetter{
		Engine: DefaultEngine,
		Passes: DefaultPasses,
		Logger: logger,
		exec:   defaultExec,
	}
}

// Check reports whether the engine binary is on PATH.
func (t *Typesetter) Check() error {
	if _, err := t.exec.LookPath(t.engine()); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeToolchainFailed, err, "%s not installed", t.engine())
	}
	return nil
}

func (t *Typesetter) engine() string {
	if t.Engine == "" {
		return DefaultEngine
	}
	return t.Engine
}

func (t *Typesetter) passes() int {
	return max(t.Passes, 1)
}

// Typeset runs the engine on texFile, writing outDir/jobName.pdf, and
// returns the PDF path. Any nonzero exit or a missing PDF is a
// TOOLCHAIN_FAILED error carrying the tail of the engine output.
func (t *Typesetter) Typeset(ctx context.Context, texFile, outDir, jobName string) (string, error) {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return "", err
	}
	args := []string{
		"-interaction=nonstopmode",
		"-output-directory", absOut,
		"-jobname", jobName,
		texFile,
	}

	passes := t.passes()
	for pass := 1; pass <= passes; pass++ {
		t.Logger.Debug("running typesetter", "engine", t.engine(), "pass", pass, "of", passes)
		out, err := t.exec.Run(ctx, absOut, t.engine(), args...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ferrors.Wrap(ferrors.ErrCodeTimeout, ctxErr, "%s pass %d interrupted", t.engine(), pass)
			}
			t.Logger.Error("typesetter failed", "pass", pass, "err", err)
			return "", ferrors.Wrap(ferrors.ErrCodeToolchainFailed, err,
				"%s compilation failed (pass %d): %s", t.engine(), pass, tail(out))
		}
	}

	pdf := filepath.Join(absOut, jobName+".pdf")
	info, err := os.Stat(pdf)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ferrors.New(ferrors.ErrCodeToolchainFailed, "PDF not created: %s", pdf)
	}
	if err != nil {
		return "", ferrors.Wrap(ferrors.ErrCodeToolchainFailed, err, "stat %s", pdf)
	}
	t.Logger.Debug("PDF generated", "path", pdf, "bytes", info.Size())

	t.cleanup(absOut, jobName)
	return pdf, nil
}

func (t *Typesetter) cleanup(dir, jobName string) {
	for _, ext := range auxExtensions {
		p := filepath.Join(dir, jobName+ext)
		if err := os.Remove(p); err == nil {
			t.Logger.Debug("removed", "path", p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			t.Logger.Warn("could not remove aux file", "path", p, "err", err)
		}
	}
}
