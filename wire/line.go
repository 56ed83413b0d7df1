// Package wire implements the low-level SMTP wire format: line reading with
// protocol length ceilings and the DATA dot-stuffing codec (RFC 5321 §4.5.2).
package wire

import (
	"bufio"
)

const (
	// MaxReplyLine is the RFC 5321 ceiling for a reply line, including the
	// CRLF terminator.
	MaxReplyLine = 512

	// MaxCommandLine is the RFC 5321 ceiling for a command line, excluding
	// the CRLF terminator.
	MaxCommandLine = 998
)

// ReadLine reads one CRLF-terminated line from the reader. The returned line
// has its terminator stripped; a bare LF is tolerated for robustness against
// sloppy servers. overlong reports whether the raw line (terminator included)
// exceeded max. The line is read to completion and returned either way, so
// the caller can flag the condition without losing protocol synchronization.
func ReadLine(r *bufio.Reader, max int) (line string, overlong bool, err error) {
	// FAST PATH: the whole line fits in the bufio buffer (zero-copy view).
	raw, err := r.ReadSlice('\n')
	if err == nil {
		return trimEnding(raw), len(raw) > max, nil
	}

	if err != bufio.ErrBufferFull {
		return "", false, err
	}

	// SLOW PATH: accumulate chunks. Copy the first chunk immediately because
	// the next ReadSlice overwrites it.
	buf := append([]byte(nil), raw...)
	for {
		raw, err = r.ReadSlice('\n')
		buf = append(buf, raw...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return "", false, err
		}
	}

	return trimEnding(buf), len(buf) > max, nil
}

// trimEnding strips a trailing CRLF or bare LF.
func trimEnding(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
		if n := len(b); n > 0 && b[n-1] == '\r' {
			b = b[:n-1]
		}
	}
	return string(b)
}
