// Package logging builds the logr.Logger used by the command line from a
// log/slog handler.
package logging

import (
	"io"
	"log/slog"

	"github.com/go-logr/logr"

	"github.com/operator-framework/deppy-fd/internal/config"
)

// New returns a logger writing to w in the configured format. Messages
// logged at V(n) are printed when n does not exceed the configured
// verbosity.
func New(cfg config.LogConfig, w io.Writer) logr.Logger {
	opts := &slog.HandlerOptions{Level: slog.Level(-cfg.Verbosity)}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return logr.FromSlogHandler(h)
}
