package logger

import "github.com/akab00m/shroud/shroudlib"

type noopLogger struct{}

func (n noopLogger) Named(_ string) shroudlib.Logger { return n }
func (n noopLogger) BindInt(_ string, _ int) shroudlib.Logger { return n }
func (n noopLogger) BindStr(_, _ string) shroudlib.Logger { return n }
func (n noopLogger) BindJSON(_, _ string) shroudlib.Logger { return n }
func (n noopLogger) Printf(_ string, _ ...interface{}) {}
func (n noopLogger) Info(_ string) {}
func (n noopLogger) InfoError(_ string, _ error) {}
func (n noopLogger) Warning(_ string) {}
func (n noopLogger) WarningError(_ string, _ error) {}
func (n noopLogger) Debug(_ string) {}
func (n noopLogger) DebugError(_ string, _ error) {}

// NewNoopLogger returns a logger which discards all events.
func NewNoopLogger() shroudlib.Logger {
	return noopLogger{}
}
