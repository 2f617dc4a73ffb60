package progress

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Mode represents how progress is presented.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and redirected output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether progress on out can be drawn interactively.
//
// Returns ModeNonInteractive if:
//   - PGLOAD_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - out is not a terminal
func DetectMode(out *os.File) Mode {
	if os.Getenv("PGLOAD_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}
	if out == nil || !term.IsTerminal(int(out.Fd())) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// New returns the reporter for mode. Interactive progress is drawn on out;
// non-interactive progress goes through logger.
func New(mode Mode, logger pgload.Logger, out io.Writer) pgload.ProgressReporter {
	if mode == ModeInteractive {
		return NewTUIReporter(out)
	}
	return NewLogReporter(logger)
}

// NullReporter discards all progress.
type NullReporter struct{}

func (NullReporter) Start(string)           {}
func (NullReporter) Report(pgload.Progress) {}
func (NullReporter) Finish(error)           {}
