package progress

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/pgload/pkg/pgload"
)

var (
	colorPrimary = lipgloss.Color("39")  // Blue
	colorMuted   = lipgloss.Color("245") // Gray
	colorSuccess = lipgloss.Color("34")  // Green
	colorError   = lipgloss.Color("196") // Red

	spinnerStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	statsStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
)

type progressMsg pgload.Progress

type finishMsg struct{ err error }

// model is the bubbletea model behind TUIReporter.
type model struct {
	spinner     spinner.Model
	description string
	last        pgload.Progress
	done        bool
	err         error
}

func newModel(description string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return model{spinner: s, description: description}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.last = pgload.Progress(msg)
		return m, nil
	case finishMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	stats := fmt.Sprintf("%s rows · %d batches · %s · %s",
		formatCount(m.last.TotalRows), m.last.Batch,
		m.last.Elapsed.Round(100*time.Millisecond), formatRate(m.last.TotalRows, m.last.Elapsed))

	if m.done {
		if m.err != nil {
			return errorStyle.Render("✗ "+m.description) + " " + statsStyle.Render(stats) + "\n"
		}
		return successStyle.Render("✓ "+m.description) + " " + statsStyle.Render(stats) + "\n"
	}
	return m.spinner.View() + " " + labelStyle.Render(m.description) + " " + statsStyle.Render(stats)
}

// TUIReporter draws a single live progress line on a terminal.
// Start, Report and Finish must be called from one goroutine.
type TUIReporter struct {
	out     io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUIReporter creates a reporter drawing on out (normally stderr).
func NewTUIReporter(out io.Writer) *TUIReporter {
	return &TUIReporter{out: out}
}

func (r *TUIReporter) Start(description string) {
	r.program = tea.NewProgram(newModel(description),
		tea.WithOutput(r.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
}

func (r *TUIReporter) Report(p pgload.Progress) {
	if r.program != nil {
		r.program.Send(progressMsg(p))
	}
}

// Finish draws the final line and waits for the program to exit.
func (r *TUIReporter) Finish(err error) {
	if r.program == nil {
		return
	}
	r.program.Send(finishMsg{err: err})
	<-r.done
	r.program = nil
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
