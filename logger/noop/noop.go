package noop

import (
	"log/slog"
)

// NewNoop returns a logger that discards every record.
func NewNoop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
