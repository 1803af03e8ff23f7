// Package logging builds the zap loggers used by the importer: one process
// logger writing to stderr and, per source run, a child logger that also
// writes to a log file of its own.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// fileTimeLayout is used in log file names; it avoids ':' so names are
// valid on every platform.
const fileTimeLayout = "2006-01-02 150405"

// New returns the process logger for cfg.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	zc, err := config(cfg)
	if err != nil {
		return nil, err
	}
	return zc.Build()
}

func config(cfg types.LogConfig) (zap.Config, error) {
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, FormatConsole) {
		zc = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return zap.Config{}, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc, nil
}

// Run is the logger of one source run.
type Run struct {
	*zap.Logger
	ID   string
	Path string // log file, empty when file logging is off
	file *os.File
}

// Close flushes the logger and closes the run log file.
func (r *Run) Close() error {
	_ = r.Sync()
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// ForSource derives the logger of a source run from base. Entries carry
// the run id, source id and database. When cfg.Dir is set they are also
// written to <dir>/<database>/IM <database> <timestamp>.log.
func ForSource(base *zap.Logger, cfg types.LogConfig, src types.Source, now time.Time) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	run := &Run{ID: id.String()}

	logger := base
	if cfg.Dir != "" {
		dir := filepath.Join(cfg.Dir, src.DatabaseName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		run.Path = filepath.Join(dir, fmt.Sprintf("IM %s %s.log", src.DatabaseName, now.Format(fileTimeLayout)))
		f, err := os.OpenFile(run.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		run.file = f

		zc, err := config(cfg)
		if err != nil {
			f.Close()
			return nil, err
		}
		fileCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zc.EncoderConfig),
			zapcore.AddSync(f),
			zc.Level,
		)
		logger = base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	run.Logger = logger.With(
		zap.String("run_id", run.ID),
		zap.Int("source_id", src.ID),
		zap.String("database", src.DatabaseName),
	)
	return run, nil
}
