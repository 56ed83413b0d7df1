package wire

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("250 ok\r\n354 go\n"))

	line, overlong, err := ReadLine(r, MaxReplyLine)
	if err != nil || overlong {
		t.Fatalf("ReadLine: %v, overlong=%v", err, overlong)
	}
	if line != "250 ok" {
		t.Errorf("line = %q", line)
	}

	// Bare LF endings are tolerated.
	line, overlong, err = ReadLine(r, MaxReplyLine)
	if err != nil || overlong {
		t.Fatalf("ReadLine: %v, overlong=%v", err, overlong)
	}
	if line != "354 go" {
		t.Errorf("line = %q", line)
	}

	if _, _, err := ReadLine(r, MaxReplyLine); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestReadLineOverlong(t *testing.T) {
	// 600 payload bytes plus CRLF exceeds the 512-byte reply ceiling. The
	// full text must still come back, flagged.
	payload := "250 " + strings.Repeat("x", 596)
	r := bufio.NewReader(strings.NewReader(payload + "\r\nNEXT\r\n"))

	line, overlong, err := ReadLine(r, MaxReplyLine)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !overlong {
		t.Error("expected overlong flag")
	}
	if line != payload {
		t.Errorf("line truncated: %d bytes, want %d", len(line), len(payload))
	}

	// The overlong line must be fully consumed so the stream stays aligned.
	next, overlong, err := ReadLine(r, MaxReplyLine)
	if err != nil || overlong {
		t.Fatalf("ReadLine: %v, overlong=%v", err, overlong)
	}
	if next != "NEXT" {
		t.Errorf("next = %q", next)
	}
}

func TestReadLineExactCeiling(t *testing.T) {
	// 510 payload bytes + CRLF is exactly 512: not overlong.
	payload := strings.Repeat("y", 510)
	r := bufio.NewReader(strings.NewReader(payload + "\r\n"))

	line, overlong, err := ReadLine(r, MaxReplyLine)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if overlong {
		t.Error("line at the ceiling must not be flagged")
	}
	if line != payload {
		t.Errorf("line = %d bytes", len(line))
	}
}

func TestReadLineLongerThanBuffer(t *testing.T) {
	// Exercise the slow path where the line exceeds the bufio buffer.
	payload := strings.Repeat("z", 9000)
	r := bufio.NewReaderSize(strings.NewReader(payload+"\r\n"), 4096)

	line, overlong, err := ReadLine(r, MaxReplyLine)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !overlong {
		t.Error("expected overlong flag")
	}
	if line != payload {
		t.Errorf("line = %d bytes, want %d", len(line), len(payload))
	}
}
