// Package progress renders ingestion progress.
//
// LogReporter writes one line per committed batch through a pgload.Logger
// and suits CI logs and redirected output. TUIReporter draws a live spinner
// line with bubbletea when a human is watching a terminal. Reporters only
// observe a run; they never influence it.
package progress
