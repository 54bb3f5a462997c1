// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const appName = "radiobox"

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or a file path
	Level  string // "debug", "info", "warn", "error"
}

// Init initializes the global zerolog logger. Terminals get the colored
// console format; files get JSON lines.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)
	debug := level == zerolog.DebugLevel

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.CallerMarshalFunc = shortCaller

	var logger zerolog.Logger
	switch out := strings.ToLower(cfg.Output); out {
	case "stdout", "":
		logger = consoleLogger(os.Stdout, debug)
	case "stderr":
		logger = consoleLogger(os.Stderr, debug)
	default:
		f, err := openFile(cfg.Output)
		if err != nil {
			return err
		}
		ctx := zerolog.New(f).With().Timestamp()
		if debug {
			ctx = ctx.Caller()
		}
		logger = ctx.Logger()
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return nil
}

// consoleLogger adds the caller only at debug level.
func consoleLogger(w io.Writer, debug bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	if !debug {
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	cw.PartsOrder = []string{"time", "level", "message", "caller"}
	cw.FormatCaller = func(i interface{}) string {
		return "(" + i.(string) + ")"
	}
	return zerolog.New(cw).With().Timestamp().Caller().Logger()
}

// shortCaller trims the caller to "dir/file.go:line".
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// DefaultFile returns the log file path under the XDG state dir. The
// interactive console logs there so log lines do not tear the prompt.
func DefaultFile() (string, error) {
	return xdg.StateFile(filepath.Join(appName, appName+".log"))
}

func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", path)
	}
	return f, nil
}

// Journal is a JSON lines logger recording one entry per player status.
// Write entries with Log() so the global level does not filter them.
type Journal struct {
	zerolog.Logger
	f *os.File
}

// NewJournal opens (appending) a journal at path.
func NewJournal(path string) (*Journal, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return &Journal{
		Logger: zerolog.New(f).With().Timestamp().Logger(),
		f:      f,
	}, nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.f.Close()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
