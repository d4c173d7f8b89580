// Package logging wraps log/slog the way the teacher wires diagnostics
// through cli/main.go's debug bool: one flag controls level, output always
// goes to stderr since stdout/the TCP connection belong to the protocol.
package logging

import (
	"log/slog"
	"os"
)

// Init installs a process-wide slog handler. debug selects slog.LevelDebug
// over the default slog.LevelInfo, mirroring the teacher's --debug flag.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
