package talon

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/net/idna"

	"github.com/synqronlabs/talon/wire"
)

// State is the session's position in the SMTP dialogue. TLS activation is
// tracked separately as an orthogonal flag (see Session.TLSActive).
type State int

const (
	// StateDisconnected means no connection is open.
	StateDisconnected State = iota

	// StateConnected means the greeting was read but EHLO/HELO has not
	// completed (also the state right after a STARTTLS upgrade, which
	// invalidates the previous greeting).
	StateConnected

	// StateGreeted means EHLO or HELO succeeded.
	StateGreeted

	// StateAuthenticated means AUTH completed successfully.
	StateAuthenticated

	// StateInTransaction means MAIL FROM and at least one RCPT TO were
	// accepted and DATA has not completed.
	StateInTransaction
)

func (st State) String() string {
	switch st {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateGreeted:
		return "greeted"
	case StateAuthenticated:
		return "authenticated"
	case StateInTransaction:
		return "in-transaction"
	}
	return fmt.Sprintf("state(%d)", int(st))
}

// Config holds session configuration.
type Config struct {
	LocalName      string      // hostname for EHLO/HELO (default "localhost")
	LocalAddr      string      // local address to bind to ("ip" or "ip:port")
	TLSConfig      *tls.Config // for STARTTLS and ConnectTLS; TLS 1.2 floor applied if unset
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Debug          DebugLevel
	Sink           Sink

	// QueueIDTable overrides the provider patterns used to extract a queue
	// id from the final DATA reply. Nil selects DefaultQueueIDTable.
	QueueIDTable []QueueIDPattern
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LocalName:      "localhost",
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Minute,
	}
}

// Session drives one SMTP connection through the command/reply protocol.
// A session owns at most one connection at a time and is not safe for
// concurrent command invocation; callers must serialize access.
type Session struct {
	config *Config
	id     string

	mu         sync.Mutex
	conn       net.Conn
	reader     *bufio.Reader
	writer     *bufio.Writer
	state      State
	tlsActive  bool
	authed     bool
	broken     bool // transport failed; session unusable until reconnect
	serverHost string
	greeting   string
	caps       *CapabilitySet
	lastReply  *Reply
	lastErr    *ErrorRecord

	// transaction state
	mailFrom  string
	rcptCount int
	queueID   string
}

// NewSession creates a session. A nil config selects DefaultConfig.
func NewSession(config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	if config.LocalName == "" {
		config.LocalName = "localhost"
	}
	return &Session{
		config: config,
		id:     ulid.Make().String(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Connect opens a plaintext connection to address ("host:port") and reads
// the 220 greeting. Calling Connect on an already-connected session fails
// fast without touching the network and leaves the existing connection open.
func (s *Session) Connect(address string) error {
	return s.connect(address, false)
}

// ConnectTLS opens an implicit-TLS connection (typically port 465) and reads
// the 220 greeting.
func (s *Session) ConnectTLS(address string) error {
	return s.connect(address, true)
}

func (s *Session) connect(address string, implicitTLS bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()

	if s.conn != nil {
		s.fail(KindAlreadyConnected, "connect while connected", nil)
		return ErrAlreadyConnected
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	s.serverHost = host

	connectTimeout := s.config.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 30 * time.Second
	}

	netDialer := &net.Dialer{Timeout: connectTimeout}
	if s.config.LocalAddr != "" {
		laddr, err := resolveLocalAddr(s.config.LocalAddr)
		if err != nil {
			s.fail(KindConnectionFailure, "invalid local address: "+err.Error(), nil)
			return fmt.Errorf("%w: invalid local address: %v", ErrConnectionFailed, err)
		}
		netDialer.LocalAddr = laddr
	}

	var conn net.Conn
	if implicitTLS {
		dialer := &tls.Dialer{NetDialer: netDialer, Config: s.tlsConfig()}
		conn, err = dialer.Dial("tcp", address)
	} else {
		conn, err = netDialer.Dial("tcp", address)
	}
	if err != nil {
		kind := KindConnectionFailure
		if isTimeout(err) {
			kind = KindTimeout
		}
		s.fail(kind, "dial "+address+": "+err.Error(), nil)
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.writer = bufio.NewWriter(conn)
	s.tlsActive = implicitTLS
	s.debugf(DebugConnection, "session %s: connected to %s", s.id, address)

	// A slow greeting must not hang indefinitely even when no read timeout
	// is configured; fall back to the connect timeout for this one read.
	if s.config.ReadTimeout == 0 {
		s.conn.SetReadDeadline(s.now().Add(connectTimeout))
		defer s.conn.SetReadDeadline(time.Time{})
	}

	reply, err := s.readReply()
	if err != nil {
		s.conn.Close()
		s.teardown()
		kind := KindConnectionFailure
		if isTimeout(err) {
			kind = KindTimeout
		}
		s.fail(kind, "reading greeting: "+err.Error(), nil)
		return fmt.Errorf("%w: reading greeting: %v", ErrConnectionFailed, err)
	}
	if reply.Code != 220 {
		s.conn.Close()
		s.teardown()
		s.fail(KindConnectionFailure, "greeting rejected: "+reply.Text(), reply)
		return fmt.Errorf("%w: greeting code %d", ErrConnectionFailed, reply.Code)
	}

	s.greeting = reply.Text()
	s.state = StateConnected
	return nil
}

// Hello greets the server, trying EHLO first and falling back to HELO when
// the server rejects EHLO with a permanent negative reply. On EHLO success
// the capability set is populated from the continuation lines; on HELO it
// degenerates to the server's self-reported name. clientName overrides the
// configured LocalName when non-empty.
func (s *Session) Hello(clientName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}

	name := clientName
	if name == "" {
		name = s.config.LocalName
	}
	if ascii, err := idna.Lookup.ToASCII(name); err == nil {
		name = ascii
	}

	// Re-greeting discards capabilities and any open transaction.
	s.caps = nil
	s.resetTransaction()

	reply, err := s.cmd("EHLO", "EHLO "+name, 250)
	if err != nil {
		var smtpErr *SMTPError
		if !errors.As(err, &smtpErr) || !smtpErr.IsPermanent() {
			return err
		}
		// Permanent rejection of EHLO: pre-ESMTP server, fall back to HELO.
		reply, err = s.cmd("HELO", "HELO "+name, 250)
		if err != nil {
			return err
		}
		s.caps = parseCapabilities("HELO", reply.Lines)
		s.state = s.baseState()
		s.clearErr()
		return nil
	}

	s.caps = parseCapabilities("EHLO", reply.Lines)
	s.state = s.baseState()
	return nil
}

// baseState is the resting state between transactions: Authenticated once
// AUTH has succeeded on this connection, Greeted otherwise.
func (s *Session) baseState() State {
	if s.authed {
		return StateAuthenticated
	}
	return StateGreeted
}

// StartTLS upgrades the existing connection to TLS in place (RFC 3207).
// Precondition: the session is greeted. A negative reply (for example 454)
// leaves the session greeted and usable in plaintext; a handshake failure
// leaves it unusable and the caller should close and reconnect. On success
// the capability set is cleared and Hello must be repeated.
func (s *Session) StartTLS() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.state < StateGreeted {
		s.fail(KindProtocolViolation, "STARTTLS before EHLO/HELO", nil)
		return ErrNotGreeted
	}
	if s.tlsActive {
		s.fail(KindTLSUpgradeFailure, "TLS already active", nil)
		return ErrTLSAlreadyActive
	}

	if _, err := s.cmd("STARTTLS", "STARTTLS", 220); err != nil {
		// Server refused the upgrade; the plaintext session is still good.
		return err
	}

	tlsConn := tls.Client(s.conn, s.tlsConfig())
	if s.config.ConnectTimeout > 0 {
		s.conn.SetDeadline(s.now().Add(s.config.ConnectTimeout))
	}
	if err := tlsConn.Handshake(); err != nil {
		// The stream is in an undefined state; the session must not claim
		// to be greeted anymore.
		s.broken = true
		s.state = StateConnected
		s.caps = nil
		s.fail(KindTLSUpgradeFailure, "handshake: "+err.Error(), nil)
		return fmt.Errorf("%w: %v", ErrTLSUpgradeFailed, err)
	}
	s.conn.SetDeadline(time.Time{})

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true

	// RFC 3207: pre-TLS capabilities are stale. Hello must be repeated.
	s.caps = nil
	s.state = StateConnected
	s.debugf(DebugConnection, "session %s: TLS active (%s)", s.id, tlsVersionName(tlsConn))
	return nil
}

// tlsConfig returns the configured TLS settings with the server name filled
// in and a TLS 1.2 floor applied when the caller did not set one. The
// maximum version is left to the platform; the engine never downgrades it.
func (s *Session) tlsConfig() *tls.Config {
	cfg := s.config.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg = cfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = s.serverHost
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}

func tlsVersionName(conn *tls.Conn) string {
	return tls.VersionName(conn.ConnectionState().Version)
}

// Noop sends NOOP, expecting 250.
func (s *Session) Noop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	_, err := s.cmd("NOOP", "NOOP", 250)
	return err
}

// Verify sends VRFY for an address. 250, 251 and 252 all count as success;
// the reply text is returned for the caller to interpret.
func (s *Session) Verify(address string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return "", err
	}
	reply, err := s.cmd("VRFY", "VRFY "+address, 250, 251, 252)
	if err != nil {
		return "", err
	}
	return reply.Text(), nil
}

// Quit ends the session politely. Equivalent to Close.
func (s *Session) Quit() error {
	return s.Close()
}

// Close releases the connection: it sends QUIT if the session is connected,
// drains and ignores the reply, closes the stream unconditionally, and
// resets the session to Disconnected. Calling Close on a disconnected
// session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if !s.broken {
		if err := s.writeLine("QUIT"); err == nil {
			s.debug(DebugClient, "C: QUIT")
			s.readReply() // best effort; the stream closes either way
		}
	}

	err := s.conn.Close()
	s.teardown()
	s.debugf(DebugConnection, "session %s: closed", s.id)
	return err
}

// State returns the session's current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TLSActive reports whether the connection is TLS-protected, either from
// ConnectTLS or a successful StartTLS.
func (s *Session) TLSActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlsActive
}

// Capabilities returns the capability set populated by the last Hello, or
// nil before any greeting.
func (s *Session) Capabilities() *CapabilitySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// Greeting returns the text of the server's 220 greeting.
func (s *Session) Greeting() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeting
}

// LastReply returns the most recent reply read from the server.
func (s *Session) LastReply() *Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReply
}

// LastError returns the error record of the most recent failed operation.
// The record is overwritten by each operation; it never accumulates.
func (s *Session) LastError() *ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return &ErrorRecord{}
	}
	rec := *s.lastErr
	return &rec
}

// cmd writes one command line, reads the reply, and checks the code against
// the accepted set.
func (s *Session) cmd(name, line string, accept ...int) (*Reply, error) {
	return s.cmdRedacted(name, line, line, accept...)
}

// cmdRedacted is cmd with a separate form of the line for debug output, so
// credentials never reach the sink.
func (s *Session) cmdRedacted(name, line, shown string, accept ...int) (*Reply, error) {
	// Client-side guard: an oversized command must fail locally, before any
	// byte reaches the transport.
	if len(line) > wire.MaxCommandLine {
		s.fail(KindProtocolViolation,
			fmt.Sprintf("%s: command line is %d bytes (ceiling %d)", name, len(line), wire.MaxCommandLine), nil)
		return nil, fmt.Errorf("%s: %w", name, ErrCommandTooLong)
	}

	if err := s.writeLine(line); err != nil {
		return nil, s.ioError(name, err)
	}
	s.debug(DebugClient, "C: "+shown)

	reply, err := s.readReply()
	if err != nil {
		if errors.Is(err, ErrProtocolViolation) {
			s.fail(KindProtocolViolation, name+": "+err.Error(), nil)
			return nil, err
		}
		return nil, s.ioError(name, err)
	}

	for _, code := range accept {
		if reply.Code == code {
			return reply, nil
		}
	}

	s.fail(KindUnexpectedCode, name+": "+reply.Text(), reply)
	return reply, &SMTPError{Code: reply.Code, EnhancedCode: reply.EnhancedCode, Message: reply.Text()}
}

// writeLine sends one CRLF-terminated line.
func (s *Session) writeLine(line string) error {
	if s.config.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(s.now().Add(s.config.WriteTimeout))
	}
	if _, err := s.writer.WriteString(line); err != nil {
		return err
	}
	if _, err := s.writer.WriteString("\r\n"); err != nil {
		return err
	}
	return s.writer.Flush()
}

// ioError records a transport-level failure. The in-flight command is lost
// and the session becomes unusable; the logical state is left for the next
// operation to collapse (see ensureConn).
func (s *Session) ioError(op string, err error) error {
	s.broken = true
	kind := KindConnectionFailure
	if isTimeout(err) {
		kind = KindTimeout
	}
	s.fail(kind, op+": "+err.Error(), nil)
	return fmt.Errorf("%s: %w", op, err)
}

// ensureConn verifies the session has a usable connection. A session whose
// transport failed earlier is torn down here, completing the forced return
// to Disconnected.
func (s *Session) ensureConn() error {
	if s.conn == nil {
		s.fail(KindNotConnected, "no connection established", nil)
		return ErrNotConnected
	}
	if s.broken {
		s.conn.Close()
		s.teardown()
		s.fail(KindNotConnected, "session unusable after I/O failure", nil)
		return ErrSessionUnusable
	}
	return nil
}

// teardown resets all connection-scoped state.
func (s *Session) teardown() {
	s.conn = nil
	s.reader = nil
	s.writer = nil
	s.state = StateDisconnected
	s.tlsActive = false
	s.authed = false
	s.broken = false
	s.caps = nil
	s.greeting = ""
	s.resetTransaction()
}

func (s *Session) resetTransaction() {
	s.mailFrom = ""
	s.rcptCount = 0
	s.queueID = ""
}

func (s *Session) clearErr() {
	s.lastErr = nil
}

func (s *Session) fail(kind ErrorKind, detail string, reply *Reply) {
	rec := &ErrorRecord{Kind: kind, Detail: detail}
	if reply != nil {
		rec.Code = reply.Code
		rec.EnhancedCode = reply.EnhancedCode
	}
	s.lastErr = rec
}

func (s *Session) now() time.Time {
	return time.Now()
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// resolveLocalAddr parses a local bind address. Accepts "ip", "ip:port",
// "[ipv6]:port", ":port", or "" (returns nil).
func resolveLocalAddr(addr string) (*net.TCPAddr, error) {
	if addr == "" {
		return nil, nil
	}
	if ip := net.ParseIP(addr); ip != nil {
		return &net.TCPAddr{IP: ip}, nil
	}
	return net.ResolveTCPAddr("tcp", addr)
}
