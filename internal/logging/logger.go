// Package logging provides categorized file-based logging for the harness.
// Logs are written to <output_dir>/.chessbench/logs/ with one file per
// category per day. Logging is gated by the tracking section of the resolved
// config; when disabled, every call is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryRun       Category = "run"       // Runner lifecycle, gates, resume
	CategoryConfig    Category = "config"    // Resolution, hashing, validation
	CategoryProvider  Category = "provider"  // LLM API calls and retries
	CategoryEngine    Category = "engine"    // UCI engine subprocess traffic
	CategoryGame      Category = "game"      // Game loop, move application
	CategoryRetrieval Category = "retrieval" // Knowledge index queries
	CategoryEval      Category = "eval"      // Post-hoc evaluation pipeline
	CategoryStats     Category = "stats"     // Comparison engine
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Settings controls the file logger. Zero value disables logging.
type Settings struct {
	Enabled bool
	Debug   bool
	Level   string // debug, info, warn, error
	Dir     string
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers    = make(map[Category]*Logger)
	loggersMu  sync.RWMutex
	settings   Settings
	settingsMu sync.RWMutex
	logLevel   int
)

// Initialize configures the logging directory and level. Call once at
// startup; safe to call again to reconfigure (open files are reset).
func Initialize(s Settings) error {
	settingsMu.Lock()
	settings = s
	switch s.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	if s.Debug {
		logLevel = LevelDebug
	}
	settingsMu.Unlock()

	CloseAll()

	if !s.Enabled {
		return nil
	}
	if s.Dir == "" {
		return fmt.Errorf("logging: directory required when enabled")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("logging: creating %s: %w", s.Dir, err)
	}
	Get(CategoryRun).Info("logging initialized: dir=%s level=%s", s.Dir, s.Level)
	return nil
}

// Enabled reports whether file logging is active.
func Enabled() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.Enabled
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger when logging is disabled.
func Get(category Category) *Logger {
	if !Enabled() {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	settingsMu.RLock()
	dir := settings.Dir
	settingsMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error. Always written when the logger is live.
func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions for the hot categories.

// Run logs to the run category.
func Run(format string, args ...any) { Get(CategoryRun).Info(format, args...) }

// Provider logs to the provider category.
func Provider(format string, args ...any) { Get(CategoryProvider).Info(format, args...) }

// Game logs to the game category.
func Game(format string, args ...any) { Get(CategoryGame).Info(format, args...) }

// Retrieval logs to the retrieval category.
func Retrieval(format string, args ...any) { Get(CategoryRetrieval).Info(format, args...) }

// Eval logs to the eval category.
func Eval(format string, args ...any) { Get(CategoryEval).Info(format, args...) }

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
