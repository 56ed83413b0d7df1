package talon

import (
	"fmt"
	"html"
	"io"

	"github.com/rs/zerolog"
)

// DebugLevel controls protocol dialogue verbosity. Each level includes
// everything below it.
type DebugLevel int

const (
	// DebugOff disables all debug output.
	DebugOff DebugLevel = iota

	// DebugClient shows commands sent by the client.
	DebugClient

	// DebugServer shows client commands and server replies.
	DebugServer

	// DebugConnection adds connection status messages.
	DebugConnection

	// DebugLowLevel adds low-level transport detail.
	DebugLowLevel
)

func (l DebugLevel) String() string {
	switch l {
	case DebugOff:
		return "off"
	case DebugClient:
		return "client"
	case DebugServer:
		return "client+server"
	case DebugConnection:
		return "connection"
	case DebugLowLevel:
		return "lowlevel"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Sink receives protocol dialogue lines from a session. Implementations must
// not block: the session invokes the sink synchronously on every line.
//
// Four sinks are provided: a writer echo, an HTML-escaping writer, a
// structured log sink, and a free-form callback.
type Sink interface {
	Write(text string, level DebugLevel)
}

// WriterSink echoes each line to an io.Writer, one line per call.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Write(text string, level DebugLevel) {
	fmt.Fprintf(s.W, "%s\n", text)
}

// HTMLSink escapes each line for safe embedding in HTML output and appends
// a <br> tag.
type HTMLSink struct {
	W io.Writer
}

func (s *HTMLSink) Write(text string, level DebugLevel) {
	fmt.Fprintf(s.W, "%s<br>\n", html.EscapeString(text))
}

// LogSink forwards lines to a zerolog logger at debug level, tagging each
// event with the verbosity level it was emitted at.
type LogSink struct {
	Logger zerolog.Logger
}

// NewLogSink builds a LogSink writing to w with timestamps.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{Logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (s *LogSink) Write(text string, level DebugLevel) {
	s.Logger.Debug().Str("verbosity", level.String()).Msg(text)
}

// CallbackSink adapts a function to the Sink interface.
type CallbackSink func(text string, level DebugLevel)

func (f CallbackSink) Write(text string, level DebugLevel) {
	f(text, level)
}

// debug emits text to the configured sink if the session's debug level is at
// least lvl.
func (s *Session) debug(lvl DebugLevel, text string) {
	if s.config.Debug >= lvl && s.config.Sink != nil {
		s.config.Sink.Write(text, lvl)
	}
}

func (s *Session) debugf(lvl DebugLevel, format string, args ...any) {
	if s.config.Debug >= lvl && s.config.Sink != nil {
		s.config.Sink.Write(fmt.Sprintf(format, args...), lvl)
	}
}
