package progress

import (
	"time"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// LogReporter reports each committed batch as one log line.
type LogReporter struct {
	logger      pgload.Logger
	description string
	last        pgload.Progress
}

// NewLogReporter creates a LogReporter writing through logger.
func NewLogReporter(logger pgload.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Start(description string) {
	r.description = description
	r.last = pgload.Progress{}
	r.logger.Verbose("%s: started", description)
}

func (r *LogReporter) Report(p pgload.Progress) {
	r.last = p
	r.logger.Info("%s: batch %d, %d rows (%d total, %s)",
		r.description, p.Batch, p.Rows, p.TotalRows, formatRate(p.TotalRows, p.Elapsed))
}

func (r *LogReporter) Finish(err error) {
	if err != nil {
		r.logger.Verbose("%s: stopped after %d rows: %v", r.description, r.last.TotalRows, err)
		return
	}
	r.logger.Verbose("%s: %d rows in %d batches (%v)",
		r.description, r.last.TotalRows, r.last.Batch, r.last.Elapsed.Round(time.Millisecond))
}

func formatRate(rows int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "- rows/s"
	}
	return formatCount(int64(float64(rows)/elapsed.Seconds())) + " rows/s"
}
