// Package logger wraps log/slog with the package-level init/helper-function
// pattern the rest of this repository's command-line tooling expects.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"poolkit/pkg/paths"
)

var Log *slog.Logger

var (
	logFile   *os.File
	logFileMu sync.Mutex
)

// Init builds the global logger at the given level ("debug", "info",
// "warn", or "error") and points it at both stdout and a dated file under
// the data directory.
func Init(levelStr string) {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	dataDir := paths.GetDataDir()
	logFileName := fmt.Sprintf("poolctl-%s.log", time.Now().Format("2006-01-02"))
	logFilePath := filepath.Join(dataDir, logFileName)

	logFileMu.Lock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: create data dir %s: %v\n", dataDir, err)
	} else if f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "logger: open log file %s: %v\n", logFilePath, err)
	} else {
		logFile = f
	}
	logFileMu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	handler := &fileTeeHandler{Handler: slog.NewTextHandler(os.Stdout, opts)}
	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// fileTeeHandler duplicates every record handled by the wrapped handler
// into the currently open log file, if any.
type fileTeeHandler struct {
	slog.Handler
}

func (h *fileTeeHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.Handler.Handle(ctx, r)

	logFileMu.Lock()
	f := logFile
	logFileMu.Unlock()
	if f != nil {
		msg := fmt.Sprintf("time=%s level=%s msg=%q", r.Time.Format(time.RFC3339), r.Level, r.Message)
		r.Attrs(func(a slog.Attr) bool {
			msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		fmt.Fprintln(f, msg)
	}
	return err
}

// Close closes the log file, if one is open.
func Close() {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }

func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
