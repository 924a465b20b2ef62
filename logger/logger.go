package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
	FATAL: "\033[35m", // Magenta
}

const resetColor = "\033[0m"

// ParseLevel maps a config string ("debug", "info", ...) to a LogLevel.
// Unknown values fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Logger writes leveled log lines to a set of destinations.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	writers  []io.Writer
	useColor bool
}

// Config describes how the logger should be initialised.
type Config struct {
	Level    LogLevel
	LogDir   string // empty disables file output
	MaxAge   int    // days to keep rotated files
	UseColor bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Initialize boots the global logger instance if it has not been created yet.
func Initialize(config Config) error {
	var err error
	once.Do(func() {
		l := &Logger{
			level:    config.Level,
			writers:  []io.Writer{os.Stdout},
			useColor: config.UseColor,
		}

		if config.LogDir != "" {
			if err = os.MkdirAll(config.LogDir, 0755); err != nil {
				return
			}

			file, fileErr := openDailyFile(config.LogDir)
			if fileErr != nil {
				err = fileErr
				return
			}
			l.writers = append(l.writers, file)

			go pruneOldFiles(config.LogDir, config.MaxAge)
		}

		defaultLogger = l
	})

	return err
}

// openDailyFile opens (or creates) the log file for the current day.
func openDailyFile(logDir string) (*os.File, error) {
	name := fmt.Sprintf("server-%s.log", time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// pruneOldFiles removes log files past the retention window once an hour.
func pruneOldFiles(logDir string, maxAge int) {
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		files, _ := filepath.Glob(filepath.Join(logDir, "server-*.log"))
		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil {
				continue
			}
			if time.Since(info.ModTime()) > time.Duration(maxAge)*24*time.Hour {
				os.Remove(file)
			}
		}
	}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)

	for i, writer := range l.writers {
		line := fmt.Sprintf("%s [%s] %s\n", timestamp, levelNames[level], message)
		if i == 0 && l.useColor { // colour only on stdout
			line = fmt.Sprintf("%s [%s] %s%s%s\n",
				timestamp, levelNames[level], levelColors[level], message, resetColor)
		}
		writer.Write([]byte(line))
	}

	if level == FATAL {
		os.Exit(1)
	}
}

// Package-level helpers operating on the default logger. They degrade to the
// stdlib logger when Initialize has not run (early startup failures).

func Debug(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(DEBUG, format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(INFO, format, args...)
	} else {
		log.Printf("[INFO] "+format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(WARN, format, args...)
	} else {
		log.Printf("[WARN] "+format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(ERROR, format, args...)
	} else {
		log.Printf("[ERROR] "+format, args...)
	}
}

func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(FATAL, format, args...)
	} else {
		log.Fatalf("[FATAL] "+format, args...)
	}
}

// SetLevel updates the global logging level.
func SetLevel(level LogLevel) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.level = level
		defaultLogger.mu.Unlock()
	}
}

// WithFields attaches structured fields to a log entry.
func WithFields(fields map[string]interface{}) *LogEntry {
	return &LogEntry{fields: fields, logger: defaultLogger}
}

// LogEntry is a structured log entry builder.
type LogEntry struct {
	fields map[string]interface{}
	logger *Logger
}

func (e *LogEntry) Debug(format string, args ...interface{}) { e.log(DEBUG, format, args...) }
func (e *LogEntry) Info(format string, args ...interface{})  { e.log(INFO, format, args...) }
func (e *LogEntry) Warn(format string, args ...interface{})  { e.log(WARN, format, args...) }
func (e *LogEntry) Error(format string, args ...interface{}) { e.log(ERROR, format, args...) }
func (e *LogEntry) Fatal(format string, args ...interface{}) { e.log(FATAL, format, args...) }

// Log emits a message with an explicit level via the entry.
func (e *LogEntry) Log(level LogLevel, format string, args ...interface{}) {
	e.log(level, format, args...)
}

func (e *LogEntry) log(level LogLevel, format string, args ...interface{}) {
	if e.logger == nil || level < e.logger.level {
		return
	}

	message := fmt.Sprintf(format, args...)

	if len(e.fields) > 0 {
		keys := make([]string, 0, len(e.fields))
		for k := range e.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.fields[k]))
		}
		message = fmt.Sprintf("%s | %s", message, strings.Join(parts, ", "))
	}

	e.logger.log(level, "%s", message)
}
