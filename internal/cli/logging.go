package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ConfigureLogging sets the global logrus level and output. With an empty
// path logs go to stderr; otherwise they are appended to the named file. The
// returned Closer releases the log file.
func ConfigureLogging(level, path string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, Usage("invalid log level %q: %v", level, err)
	}
	logrus.SetLevel(lvl)

	if path == "" {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(formatterFor(os.Stderr))
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)
	logrus.SetFormatter(formatterFor(f))
	return f, nil
}

// formatterFor picks a human readable formatter for terminals and JSON for
// everything else.
func formatterFor(w io.Writer) logrus.Formatter {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &logrus.TextFormatter{FullTimestamp: true}
	}
	return &logrus.JSONFormatter{}
}
