package talon

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/synqronlabs/talon/wire"
)

// MailOptions carries optional MAIL FROM extension parameters. Parameters
// are only emitted when the server advertised the corresponding extension.
type MailOptions struct {
	Size   int64  // SIZE declaration (RFC 1870)
	UTF8   bool   // SMTPUTF8 (RFC 6531)
	EnvID  string // DSN envelope id (RFC 3461)
	Return string // DSN RET: "FULL" or "HDRS"
}

// DSNOptions carries per-recipient delivery-status-notification parameters
// for RCPT TO (RFC 3461).
type DSNOptions struct {
	Notify []string // NEVER, or any of SUCCESS, FAILURE, DELAY
	ORcpt  string   // original recipient
}

// Mail sends MAIL FROM, opening a mail transaction. The session enters
// InTransaction only once at least one recipient has been accepted.
func (s *Session) Mail(from string) error {
	return s.MailWithOptions(from, MailOptions{})
}

// MailWithOptions is Mail with extension parameters.
func (s *Session) MailWithOptions(from string, opts MailOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.state < StateGreeted {
		s.fail(KindProtocolViolation, "MAIL before EHLO/HELO", nil)
		return ErrNotGreeted
	}

	var params []string
	if opts.Size > 0 && s.caps.Has(ExtSize) {
		params = append(params, fmt.Sprintf("SIZE=%d", opts.Size))
	}
	if opts.UTF8 && s.caps.Has(ExtSMTPUTF8) {
		params = append(params, "SMTPUTF8")
	}
	if s.caps.Has(ExtDSN) {
		if opts.Return != "" {
			params = append(params, "RET="+opts.Return)
		}
		if opts.EnvID != "" {
			params = append(params, "ENVID="+opts.EnvID)
		}
	}

	line := "MAIL FROM:<" + from + ">"
	if len(params) > 0 {
		line += " " + strings.Join(params, " ")
	}

	if _, err := s.cmd("MAIL", line, 250); err != nil {
		return err
	}

	s.mailFrom = from
	s.rcptCount = 0
	s.queueID = ""
	return nil
}

// Rcpt sends RCPT TO for one recipient. 250 and 251 (forwarding) both count
// as acceptance. A rejected recipient does not abort the transaction: the
// caller may retry with a different address without re-sending MAIL FROM.
func (s *Session) Rcpt(to string) error {
	return s.RcptWithDSN(to, DSNOptions{})
}

// RcptWithDSN is Rcpt with delivery-status-notification parameters.
func (s *Session) RcptWithDSN(to string, dsn DSNOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.mailFrom == "" {
		s.fail(KindProtocolViolation, "RCPT before MAIL", nil)
		return fmt.Errorf("%w: RCPT before MAIL", ErrProtocolViolation)
	}

	var params []string
	if s.caps.Has(ExtDSN) {
		if len(dsn.Notify) > 0 {
			params = append(params, "NOTIFY="+strings.Join(dsn.Notify, ","))
		}
		if dsn.ORcpt != "" {
			params = append(params, "ORCPT="+dsn.ORcpt)
		}
	}

	line := "RCPT TO:<" + to + ">"
	if len(params) > 0 {
		line += " " + strings.Join(params, " ")
	}

	if _, err := s.cmd("RCPT", line, 250, 251); err != nil {
		return err
	}

	s.rcptCount++
	s.state = StateInTransaction
	return nil
}

// Data transmits a complete message body: DATA, the 354 go-ahead, the
// dot-stuffed body, the CRLF.CRLF terminator, and the final 250. On success
// a provider-specific queue id is extracted from the final reply (best
// effort; see QueueID). On failure at either stage the transaction is reset
// so a new MAIL FROM can be attempted; the engine never believes a message
// was queued when it was not.
func (s *Session) Data(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data(func() error {
		_, err := s.writer.Write(wire.Stuff(message))
		if err != nil {
			return err
		}
		if len(message) > 0 && !strings.HasSuffix(string(messageTail(message)), "\r\n") {
			if _, err := s.writer.WriteString("\r\n"); err != nil {
				return err
			}
		}
		_, err = s.writer.WriteString(".\r\n")
		return err
	})
}

// DataFrom streams the message body from r, dot-stuffing on the fly. More
// memory-efficient than Data for large messages.
func (s *Session) DataFrom(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data(func() error {
		dw := wire.NewDotWriter(s.writer)
		if _, err := io.Copy(dw, r); err != nil {
			return err
		}
		return dw.Close()
	})
}

// data runs the two-stage DATA exchange around a body-writing callback.
func (s *Session) data(writeBody func() error) error {
	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.state != StateInTransaction {
		s.fail(KindProtocolViolation, "DATA without an accepted recipient", nil)
		return fmt.Errorf("%w: DATA without an accepted recipient", ErrProtocolViolation)
	}

	if _, err := s.cmd("DATA", "DATA", 354); err != nil {
		// The transaction is dead either way; allow a fresh MAIL FROM.
		s.resetTransaction()
		s.state = s.baseState()
		return err
	}

	if s.config.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(s.now().Add(s.config.WriteTimeout))
	}
	if err := writeBody(); err != nil {
		s.resetTransaction()
		s.state = s.baseState()
		return s.ioError("DATA body", err)
	}
	if err := s.writer.Flush(); err != nil {
		s.resetTransaction()
		s.state = s.baseState()
		return s.ioError("DATA body", err)
	}
	s.debug(DebugClient, "C: <message body>")
	s.debug(DebugClient, "C: .")

	reply, err := s.readReply()
	if err != nil {
		s.resetTransaction()
		s.state = s.baseState()
		if errors.Is(err, ErrProtocolViolation) {
			s.fail(KindProtocolViolation, "DATA: "+err.Error(), nil)
			return err
		}
		return s.ioError("DATA", err)
	}
	if reply.Code != 250 {
		s.resetTransaction()
		s.state = s.baseState()
		s.fail(KindUnexpectedCode, "DATA: "+reply.Text(), reply)
		return &SMTPError{Code: reply.Code, EnhancedCode: reply.EnhancedCode, Message: reply.Text()}
	}

	// Transaction complete. Queue-id extraction is best effort; absence is
	// not an error.
	s.mailFrom = ""
	s.rcptCount = 0
	table := s.config.QueueIDTable
	if table == nil {
		table = DefaultQueueIDTable
	}
	if provider, id, ok := ExtractQueueID(table, reply.Lines); ok {
		s.queueID = id
		s.debugf(DebugConnection, "session %s: queued as %s (%s)", s.id, id, provider)
	} else {
		s.queueID = ""
	}

	s.state = s.baseState()
	return nil
}

// Reset sends RSET, clearing any open transaction without closing the
// connection.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}

	if _, err := s.cmd("RSET", "RSET", 250); err != nil {
		return err
	}

	s.resetTransaction()
	if s.state == StateInTransaction {
		s.state = s.baseState()
	}
	return nil
}

// QueueID returns the transaction id extracted from the last successful
// DATA reply, or "" when no provider pattern matched.
func (s *Session) QueueID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueID
}

// messageTail returns up to the last two bytes of the body, for CRLF checks.
func messageTail(b []byte) []byte {
	if len(b) <= 2 {
		return b
	}
	return b[len(b)-2:]
}
