package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var DebugEnabled bool

// New builds the console logger used by every component of a run.
// Output goes to stderr so tool stdout stays clean.
func New(w io.Writer) *zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if DebugEnabled {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &logger
}

// Nop returns a logger that discards everything.
func Nop() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// Groups writes collapsible log sections understood by the CI platform.
// A disabled Groups writes nothing.
type Groups struct {
	Out     io.Writer
	Enabled bool
}

// Start opens a section and returns the func that closes it.
func (g Groups) Start(title string) func() {
	if !g.Enabled || g.Out == nil {
		return func() {}
	}
	fmt.Fprintf(g.Out, "::group::%s\n", title)
	return func() {
		fmt.Fprintln(g.Out, "::endgroup::")
	}
}
