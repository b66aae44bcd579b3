package main

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/calvinalkan/envprop/envblock"
	"github.com/calvinalkan/envprop/launch"
)

// DebugLogger provides structured debug output for a launch run.
// It is disabled by default (when output is nil) and outputs to stderr when enabled.
type DebugLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewDebugLogger creates a new debug logger.
// If output is nil, the logger is disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	if output == nil {
		return &DebugLogger{logger: slog.New(slog.DiscardHandler)}
	}

	handler := tint.NewHandler(output, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(output),
	})

	return &DebugLogger{logger: slog.New(handler), enabled: true}
}

// Enabled returns true if debug logging is enabled.
func (d *DebugLogger) Enabled() bool {
	return d.enabled
}

// Logger returns the underlying slog logger, for handing to the launcher.
func (d *DebugLogger) Logger() *slog.Logger {
	return d.logger
}

// ConfigFiles logs which config files were merged and the working directory.
func (d *DebugLogger) ConfigFiles(cfg *Config) {
	if !d.enabled {
		return
	}

	if len(cfg.LoadedFiles) == 0 {
		d.logger.Debug("config", "files", "(none)", "cwd", cfg.EffectiveCwd)

		return
	}

	d.logger.Debug("config", "files", strings.Join(cfg.LoadedFiles, ", "), "cwd", cfg.EffectiveCwd)
}

// Block logs the size of the constructed block, every occurrence of key,
// and any duplicated keys.
func (d *DebugLogger) Block(block []string, key string) {
	if !d.enabled {
		return
	}

	d.logger.Debug("environment block", "entries", len(block), "duplicates", strings.Join(envblock.Duplicates(block), ","))

	for _, m := range envblock.Lookup(block, key) {
		d.logger.Debug("override key", "index", m.Index, "entry", m.Entry)
	}
}

// Descriptors logs the launch list in order.
func (d *DebugLogger) Descriptors(ds []launch.Descriptor) {
	if !d.enabled {
		return
	}

	for i, desc := range ds {
		d.logger.Debug("child", "n", i+1, "program", desc.Program, "label", desc.Label)
	}
}
