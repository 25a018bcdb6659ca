// Package logging provides leveled logging and deposition tracing for the
// metadynamics engine. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DepositionLogger for structured JSONL deposition traces, one record
//     per hill, for post-run debugging of the bias history
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "warn", "error" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// DepositionLogger writes one structured JSONL record per deposited hill.
// It is safe for concurrent use. A nil DepositionLogger is safe to use;
// all methods are no-ops on nil receiver.
type DepositionLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDepositionLogger creates a deposition logger appending to path.
// At "info" level and above (the default), returns nil and no file is created;
// the hills log written by the store package remains the canonical record.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewDepositionLogger(path string, level string) *DepositionLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &DepositionLogger{file: f}
}

// Log writes a deposition event as a single JSONL line. A "time" field is
// added automatically. The caller's map is not mutated. Safe to call on nil
// receiver.
func (dl *DepositionLogger) Log(event map[string]any) {
	if dl == nil || dl.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	dl.mu.Lock()
	defer dl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = dl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (dl *DepositionLogger) Close() {
	if dl == nil || dl.file == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	dl.file.Close()
	dl.file = nil
}
