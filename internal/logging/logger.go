package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/config"

	"github.com/rs/zerolog"
)

// New constructs the process logger. Defaults are JSON on stdout at info
// level; the returned closer is non-nil only for file output. Empty
// app.Environment and app.Version fields are omitted from the context so
// local runs don't log blank values.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	output, closer, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	if normalize(cfg.Format) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: closer != nil}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", app.Name)
	if app.Environment != "" {
		ctx = ctx.Str("env", app.Environment)
	}
	if app.Version != "" {
		ctx = ctx.Str("version", app.Version)
	}

	logger := ctx.Logger()
	return &logger, closer, nil
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

// parseLevel maps a configured level name to zerolog's, falling back to
// info on anything unrecognized rather than failing startup.
func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(normalize(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
