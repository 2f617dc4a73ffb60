package progress

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestDetectMode_NON_INTERACTIVE(t *testing.T) {
	t.Setenv("PGLOAD_NON_INTERACTIVE", "1")
	t.Setenv("CI", "")
	t.Setenv("NO_COLOR", "")

	assert.Equal(t, ModeNonInteractive, DetectMode(nil))
}

func TestDetectMode_CI(t *testing.T) {
	t.Setenv("PGLOAD_NON_INTERACTIVE", "")
	t.Setenv("CI", "true")
	t.Setenv("NO_COLOR", "")

	assert.Equal(t, ModeNonInteractive, DetectMode(nil))
}

func TestDetectMode_NoTerminal(t *testing.T) {
	t.Setenv("PGLOAD_NON_INTERACTIVE", "")
	t.Setenv("CI", "")
	t.Setenv("NO_COLOR", "")

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, ModeNonInteractive, DetectMode(f), "a regular file is not a terminal")
}

func TestNew_SelectsReporter(t *testing.T) {
	assert.IsType(t, &LogReporter{}, New(ModeNonInteractive, logging.NewNullLogger(), nil))
	assert.IsType(t, &TUIReporter{}, New(ModeInteractive, logging.NewNullLogger(), &bytes.Buffer{}))
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logging.NewWriterLogger(&buf, true))

	r.Start("Ingesting CSV")
	r.Report(pgload.Progress{Batch: 1, Rows: 100000, TotalRows: 100000, Elapsed: 2 * time.Second})
	r.Report(pgload.Progress{Batch: 2, Rows: 500, TotalRows: 100500, Elapsed: 3 * time.Second})
	r.Finish(nil)

	out := buf.String()
	assert.Contains(t, out, "[VERBOSE] Ingesting CSV: started")
	assert.Contains(t, out, "Ingesting CSV: batch 1, 100000 rows (100000 total, 50,000 rows/s)")
	assert.Contains(t, out, "Ingesting CSV: batch 2, 500 rows (100500 total, 33,500 rows/s)")
	assert.Contains(t, out, "100500 rows in 2 batches (3s)")
}

func TestLogReporter_FinishWithError(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logging.NewWriterLogger(&buf, true))

	r.Start("Ingesting Parquet")
	r.Report(pgload.Progress{Batch: 1, Rows: 10, TotalRows: 10, Elapsed: time.Second})
	r.Finish(errors.New("boom"))

	assert.Contains(t, buf.String(), "Ingesting Parquet: stopped after 10 rows: boom")
}

func TestModel_UpdateAndView(t *testing.T) {
	var m tea.Model = newModel("Ingesting CSV")
	require.NotNil(t, m.Init())

	m, cmd := m.Update(progressMsg(pgload.Progress{Batch: 2, Rows: 3, TotalRows: 1234567, Elapsed: 2 * time.Second}))
	assert.Nil(t, cmd)
	view := m.View()
	assert.Contains(t, view, "Ingesting CSV")
	assert.Contains(t, view, "1,234,567 rows · 2 batches")

	m, _ = m.Update(spinner.TickMsg{})

	m, cmd = m.Update(finishMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, strings.Contains(m.View(), "✓ Ingesting CSV"))

	failed, _ := newModel("Ingesting CSV").Update(finishMsg{err: errors.New("x")})
	assert.Contains(t, failed.View(), "✗ Ingesting CSV")
}

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		100000:   "100,000",
		1234567:  "1,234,567",
		-2500000: "-2,500,000",
	}
	for n, want := range tests {
		assert.Equal(t, want, formatCount(n))
	}
}

func TestNullReporter(t *testing.T) {
	var r pgload.ProgressReporter = NullReporter{}
	r.Start("x")
	r.Report(pgload.Progress{})
	r.Finish(nil)
}
