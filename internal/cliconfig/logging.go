package cliconfig

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/dcf77rx/pkg/log"
)

// NewLogger builds the CLI logger: human readable output on stderr and,
// when file is set, JSON lines in a rotating log file. The level is applied
// globally so that it can be changed while running. The returned closer
// closes the file and must be called on exit.
func NewLogger(level, file string) (zerolog.Logger, io.Closer) {
	writers := []io.Writer{log.ConsoleWriter(os.Stderr)}

	var closer io.Closer = nopCloser{}
	if file != "" {
		f := log.NewRotatingFile(log.FileOptions{Path: file})
		writers = append(writers, f)
		closer = f
	}

	zerolog.SetGlobalLevel(log.ParseLevel(level))
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
