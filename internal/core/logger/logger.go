package logger

import (
	"io"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
)

var log = charmlog.NewWithOptions(io.Discard, charmlog.Options{
	ReportTimestamp: true,
	Prefix:          "medichat",
})

func init() {
	if os.Getenv("MEDICHAT_DEBUG") == "true" {
		log.SetLevel(charmlog.DebugLevel)
	}
}

// Init points the logger at path. The TUI owns the terminal, so logs never go
// to stdout/stderr while it runs. An empty path discards everything.
func Init(path string, debug bool) (io.Closer, error) {
	if debug {
		log.SetLevel(charmlog.DebugLevel)
	}

	if path == "" {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	log.SetOutput(f)
	return f, nil
}

// SetOutput redirects the logger, mainly for tests and one-shot commands
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}
