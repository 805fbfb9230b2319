// Package log provides a logging backend, based around the go-logging package.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

// Backend is a log backend.
type Backend struct {
	w       io.Writer
	backend logging.LeveledBackend
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// Close closes the log file, if the backend writes to one.
func (b *Backend) Close() error {
	if f, ok := b.w.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// New initializes a logging backend writing to the file f, or to stderr
// when f is empty.
func New(f string, level string, disable bool) (*Backend, error) {
	if disable {
		return NewWithWriter(io.Discard, level)
	}
	if f == "" {
		return NewWithWriter(os.Stderr, level)
	}

	const fileMode = 0600
	flags := os.O_CREATE | os.O_APPEND | os.O_WRONLY
	w, err := os.OpenFile(f, flags, fileMode)
	if err != nil {
		return nil, fmt.Errorf("log: failed to create log file: %v", err)
	}
	b, err := NewWithWriter(w, level)
	if err != nil {
		w.Close()
		return nil, err
	}
	return b, nil
}

// NewWithWriter initializes a logging backend writing to w.
func NewWithWriter(w io.Writer, level string) (*Backend, error) {
	lvl, err := logLevelFromString(level)
	if err != nil {
		return nil, err
	}

	b := &Backend{w: w}
	logFmt := logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(b.w, "", 0)
	formatted := logging.NewBackendFormatter(base, logFmt)
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(lvl, "")
	return b, nil
}

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}
