package talon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synqronlabs/talon/wire"
)

// Reply is the parsed result of one server response: a three-digit status
// code and one or more text lines. Multi-line replies are folded per RFC
// 5321 (hyphen in the fourth column on all lines but the last).
type Reply struct {
	Code         int
	Lines        []string // text after the code and separator, per line
	EnhancedCode string   // RFC 2034 enhanced status code from the first line
	Overlong     bool     // some line exceeded the 512-byte reply ceiling
}

// Text returns the reply lines joined by newlines.
func (r *Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// IsSuccess returns true if the reply indicates success (2xx).
func (r *Reply) IsSuccess() bool {
	return r.Code >= 200 && r.Code < 300
}

// IsIntermediate returns true if the reply is intermediate (3xx).
func (r *Reply) IsIntermediate() bool {
	return r.Code >= 300 && r.Code < 400
}

// IsTransientError returns true if the reply indicates a transient error (4xx).
func (r *Reply) IsTransientError() bool {
	return r.Code >= 400 && r.Code < 500
}

// IsPermanentError returns true if the reply indicates a permanent error (5xx).
func (r *Reply) IsPermanentError() bool {
	return r.Code >= 500 && r.Code < 600
}

// readReply reads one complete (possibly multi-line) reply from the
// connection. Continuation lines must carry the same status code as the
// first line; a mismatch is a protocol violation. Lines exceeding the
// 512-byte ceiling are kept but flagged on the reply.
func (s *Session) readReply() (*Reply, error) {
	if s.config.ReadTimeout > 0 {
		s.conn.SetReadDeadline(s.now().Add(s.config.ReadTimeout))
	}

	reply := &Reply{}
	for {
		line, overlong, err := wire.ReadLine(s.reader, wire.MaxReplyLine)
		if err != nil {
			return nil, err
		}
		if overlong {
			reply.Overlong = true
			s.debugf(DebugLowLevel, "reply line exceeds %d bytes, keeping", wire.MaxReplyLine)
		}

		s.debug(DebugServer, "S: "+line)

		if len(line) < 3 {
			return nil, fmt.Errorf("%w: reply line too short: %q", ErrProtocolViolation, line)
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil || code < 100 {
			return nil, fmt.Errorf("%w: malformed reply code: %q", ErrProtocolViolation, line)
		}

		if reply.Code == 0 {
			reply.Code = code
		} else if code != reply.Code {
			return nil, fmt.Errorf("%w: reply code changed from %d to %d across continuation lines",
				ErrProtocolViolation, reply.Code, code)
		}

		text := ""
		if len(line) > 4 {
			text = line[4:]
		}
		reply.Lines = append(reply.Lines, text)

		// A hyphen in the fourth column marks a continuation line; anything
		// else (space, or a bare three-digit line) ends the reply.
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	if len(reply.Lines) > 0 {
		reply.EnhancedCode = parseEnhancedCode(reply.Lines[0])
	}

	s.lastReply = reply
	return reply, nil
}

// parseEnhancedCode extracts an RFC 2034 enhanced status code (X.Y.Z) from
// the start of a reply text line, or returns "".
func parseEnhancedCode(text string) string {
	field, _, _ := strings.Cut(text, " ")
	parts := strings.Split(field, ".")
	if len(parts) != 3 {
		return ""
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
		if _, err := strconv.Atoi(p); err != nil {
			return ""
		}
	}
	return field
}
