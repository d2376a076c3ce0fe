package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-bridge/internal/application/port/output"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type Config struct {
	Level string
	// Dir receives one log file per process start. Empty disables the file.
	Dir  string
	Name string
	// JSON selects the JSON encoder for stderr; the file is always JSON.
	JSON bool
}

type LoggerAdapter struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
	path  string

	// file and closeOnce belong to the root logger; children leave them nil.
	file      *os.File
	closeOnce *sync.Once
}

func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var consoleEnc zapcore.Encoder
	if cfg.JSON {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(devCfg)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}

	var (
		path string
		file *os.File
	)
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(cfg.Name))
		path = filepath.Join(cfg.Dir, filename)
		var err error
		file, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &LoggerAdapter{sugar: base.Sugar(), base: base, path: path, file: file, closeOnce: &sync.Once{}}, nil
}

// NewNop discards everything.
func NewNop() *LoggerAdapter {
	base := zap.NewNop()
	return &LoggerAdapter{sugar: base.Sugar(), base: base}
}

// Path is the log file written by this logger, if any.
func (l *LoggerAdapter) Path() string {
	return l.path
}

// Zap exposes the underlying logger for libraries that take one directly.
func (l *LoggerAdapter) Zap() *zap.Logger {
	return l.base
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.With(key, value), base: l.base, path: l.path}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &LoggerAdapter{sugar: l.sugar.With(args...), base: l.base, path: l.path}
}

// Close flushes buffered entries and, on the root logger, closes the log
// file. Sync on a terminal returns EINVAL or ENOTTY on some platforms, which
// is not worth reporting.
func (l *LoggerAdapter) Close() error {
	err := l.sugar.Sync()
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = nil
	}

	if l.file != nil && l.closeOnce != nil {
		l.closeOnce.Do(func() {
			if cerr := l.file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close log file: %w", cerr)
			}
		})
	}
	return err
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "bridge"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
