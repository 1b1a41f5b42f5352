package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggers   = make(map[string]*logrus.Logger)
	hooks     []*AsyncHook
	loggersMu sync.Mutex

	config *LogConfig
)

// Init sets the logging configuration. A nil cfg means DefaultConfig().
// Loggers created before Init keep their old settings.
func Init(cfg *LogConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	loggersMu.Lock()
	config = cfg
	loggersMu.Unlock()
	return nil
}

// GetLogger returns the named logger (app, audit, error, ...), creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if config == nil {
		config = DefaultConfig()
	}
	if l, ok := loggers[name]; ok {
		return l
	}
	l := createLogger(name)
	loggers[name] = l
	return l
}

func createLogger(name string) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	var writers []io.Writer
	if config.Output == "file" || config.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logFilePath(name),
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	if config.Output == "stdout" || config.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if config.Output == "stderr" {
		writers = append(writers, os.Stderr)
	}

	// The filter hook must run before the async hook so filtered entries never reach the queue.
	l.AddHook(NewFilterHook(config))
	if len(writers) > 0 {
		async := NewAsyncHookWithWriters(writers, config.BufferSize)
		l.AddHook(async)
		hooks = append(hooks, async)
		l.SetOutput(io.Discard)
	}

	l.SetReportCaller(true)
	return l
}

func logFilePath(name string) string {
	var filename string
	switch name {
	case "app":
		filename = config.AppFile
	case "audit":
		filename = config.AuditFile
	case "error":
		filename = config.ErrorFile
	default:
		filename = name + ".log"
	}
	return filepath.Join(config.LogPath, filename)
}

// Close flushes and stops every async hook. Call once on shutdown.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, h := range hooks {
		_ = h.Close()
	}
	hooks = nil
}

// GetAppLogger returns the main application logger.
func GetAppLogger() *logrus.Logger {
	return GetLogger("app")
}

// GetAuditLogger returns the audit logger (sync triggers).
func GetAuditLogger() *logrus.Logger {
	return GetLogger("audit")
}

// GetErrorLogger returns the error logger.
func GetErrorLogger() *logrus.Logger {
	return GetLogger("error")
}
