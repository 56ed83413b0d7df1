package wire

import (
	"bufio"
	"io"
)

// DotWriter writes a DATA message body with dot-stuffing: any line beginning
// with '.' is transmitted with an extra leading '.'. Close terminates the
// body with CRLF (if the data did not end on a line boundary) followed by
// the ".\r\n" end-of-data sequence, but does not flush or close the
// underlying writer.
type DotWriter struct {
	w           *bufio.Writer
	atLineStart bool
	closed      bool
}

// NewDotWriter wraps w for dot-stuffed output.
func NewDotWriter(w *bufio.Writer) *DotWriter {
	return &DotWriter{w: w, atLineStart: true}
}

func (d *DotWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if d.atLineStart && b == '.' {
			if err := d.w.WriteByte('.'); err != nil {
				return i, err
			}
		}
		if err := d.w.WriteByte(b); err != nil {
			return i, err
		}
		d.atLineStart = b == '\n'
	}
	return len(p), nil
}

// Close writes the end-of-data sequence. Safe to call once only.
func (d *DotWriter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.atLineStart {
		if _, err := d.w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	_, err := d.w.WriteString(".\r\n")
	return err
}

// Stuff returns a dot-stuffed copy of data. When no line begins with a dot
// the original slice is returned unmodified.
func Stuff(data []byte) []byte {
	count := 0
	atLineStart := true
	for _, b := range data {
		if atLineStart && b == '.' {
			count++
		}
		atLineStart = b == '\n'
	}
	if count == 0 {
		return data
	}

	result := make([]byte, 0, len(data)+count)
	atLineStart = true
	for _, b := range data {
		if atLineStart && b == '.' {
			result = append(result, '.')
		}
		result = append(result, b)
		atLineStart = b == '\n'
	}
	return result
}

// DotReader reads a dot-stuffed DATA body, transparently removing the
// stuffing and terminating with io.EOF at the ".\r\n" end-of-data line.
// Feeding a DotWriter's output through a DotReader reproduces the original
// body exactly.
type DotReader struct {
	r     *bufio.Reader
	state int
	err   error
}

const (
	dotStateBeginLine = iota // at the beginning of a line
	dotStateLine             // in the middle of a line
	dotStateCR               // just saw \r
	dotStateDot              // saw dot at beginning of line
	dotStateDotCR            // saw dot then \r at beginning of line
	dotStateEOF              // reached termination
)

// NewDotReader wraps r for de-stuffed reading.
func NewDotReader(r *bufio.Reader) *DotReader {
	return &DotReader{r: r, state: dotStateBeginLine}
}

func (d *DotReader) Read(p []byte) (int, error) {
	if d.state == dotStateEOF {
		return 0, d.err
	}

	n := 0
	for n < len(p) {
		b, err := d.r.ReadByte()
		if err != nil {
			// An EOF before the terminator line means the body was cut off.
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			d.state = dotStateEOF
			d.err = err
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		switch d.state {
		case dotStateBeginLine:
			switch b {
			case '.':
				d.state = dotStateDot
			case '\r':
				d.state = dotStateCR
				p[n] = b
				n++
			case '\n':
				// Bare LF, still a line ending.
				p[n] = b
				n++
			default:
				d.state = dotStateLine
				p[n] = b
				n++
			}

		case dotStateLine:
			switch b {
			case '\r':
				d.state = dotStateCR
			case '\n':
				d.state = dotStateBeginLine
			}
			p[n] = b
			n++

		case dotStateCR:
			switch b {
			case '\n':
				d.state = dotStateBeginLine
			case '\r':
				// stay in CR state
			default:
				d.state = dotStateLine
			}
			p[n] = b
			n++

		case dotStateDot:
			switch b {
			case '\r':
				d.state = dotStateDotCR
			case '\n':
				// Lone dot on a bare-LF line: terminator.
				d.state = dotStateEOF
				d.err = io.EOF
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			default:
				// Stuffed line: the leading dot was padding.
				d.state = dotStateLine
				p[n] = b
				n++
			}

		case dotStateDotCR:
			if b == '\n' {
				d.state = dotStateEOF
				d.err = io.EOF
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			// ".\rX" — not the terminator after all; emit what was swallowed.
			if n+2 > len(p) {
				_ = d.r.UnreadByte()
				p[n] = '\r'
				n++
				d.state = dotStateLine
				return n, nil
			}
			p[n] = '\r'
			p[n+1] = b
			n += 2
			d.state = dotStateLine
		}
	}
	return n, nil
}
