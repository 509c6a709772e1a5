package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"
	"time"
)

// LogLevel orders message severities; lines below the logger's level are
// dropped.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	loggerInstance *Logger
	loggerOnce     sync.Once
)

// Logger writes component-scoped log lines to stdout and, when REX_LOG_FILE
// is set, to that file as well. Component loggers share the base file handle.
type Logger struct {
	file      *os.File
	logger    *log.Logger
	level     LogLevel
	mu        sync.Mutex
	component string
}

// GetLogger returns the singleton base logger. Level and file destination
// come from REX_DEBUG and REX_LOG_FILE, read once on first use.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		level := INFO
		if os.Getenv("REX_DEBUG") != "" {
			level = DEBUG
		}
		loggerInstance = newLogger("", level, os.Getenv("REX_LOG_FILE"))
	})
	return loggerInstance
}

// NewComponentLogger returns a logger whose lines carry the component name,
// sharing the base logger's destination.
func NewComponentLogger(component string) *Logger {
	base := GetLogger()
	return &Logger{
		file:      base.file,
		logger:    base.logger,
		level:     base.level,
		component: component,
	}
}

func newLogger(component string, level LogLevel, logPath string) *Logger {
	l := &Logger{
		level:     level,
		component: component,
	}

	if logPath == "" {
		return l
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		log.Printf("log directory unavailable, stdout only: %v", err)
		return l
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("log file unavailable, stdout only: %v", err)
		return l
	}

	l.file = file
	l.logger = log.New(file, "", 0) // log() builds the whole line
	return l
}

// SetLevel changes the minimum level for this logger only.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close releases the shared log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	component := l.component
	if component == "" {
		component = "REX"
	}

	// 2026-01-10 12:34:56 [INFO] [Component] file.go:123 - message
	logLine := sanitizeLogLine(fmt.Sprintf("%s [%s] [%s] %s:%d - %s\n",
		time.Now().Format("2006-01-02 15:04:05"), level, component,
		file, line, fmt.Sprintf(format, args...)))

	if l.logger != nil {
		l.logger.Print(logLine)
	}
	fmt.Print(logLine)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}

// redactionPlaceholder replaces any credential-looking value before a line
// reaches stdout or disk. Prompts and inherited environment values can carry
// auth tokens for the external tool.
const redactionPlaceholder = "[REDACTED]"

// redactors run in order over every line; earlier rules rewrite the input of
// later ones.
var redactors = []struct {
	pattern  *regexp.Regexp
	template string
}{
	{
		regexp.MustCompile(`(?i)((?:"|')?authorization(?:"|')?\s*(?:=|:)\s*)(bearer\s+)([^"'\s,;]+)`),
		"${1}${2}" + redactionPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)((?:"|')?(?:api[_-]?key|access[_-]?token|refresh[_-]?token|token|secret|password|credential)(?:"|')?\s*(?:=|:)\s*)(?:"|')?([^"'\s,;]+)((?:"|')?)`),
		"${1}" + redactionPlaceholder + "${3}",
	},
	{
		regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-\._~+/]+=*)`),
		"${1}" + redactionPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(sk-[A-Za-z0-9]{16,}|ghp_[A-Za-z0-9]{16,}|xox[a-z]-[A-Za-z0-9\-]{10,}|ya29\.[A-Za-z0-9\-_]+|pat_[A-Za-z0-9]{16,})`),
		redactionPlaceholder,
	},
}

func sanitizeLogLine(line string) string {
	for _, r := range redactors {
		line = r.pattern.ReplaceAllString(line, r.template)
	}
	return line
}
