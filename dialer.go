package talon

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/net/idna"

	"github.com/synqronlabs/talon/dns"
)

// Well-known submission and relay ports.
const (
	DefaultPort    = 25  // SMTP relay
	DefaultPortSSL = 465 // implicit TLS submission
	DefaultPortTLS = 587 // STARTTLS submission
)

// Dialer bundles connection policy: target, TLS posture, credentials, and
// optional MX resolution for direct-to-MX delivery.
type Dialer struct {
	Host   string
	Port   int
	Config *Config

	// SSL selects implicit TLS (port 465 semantics) instead of a plaintext
	// connection.
	SSL bool

	// StartTLS upgrades via STARTTLS when the server advertises it.
	StartTLS bool

	// RequireTLS fails the dial when neither SSL nor a successful STARTTLS
	// protects the session.
	RequireTLS bool

	// Auth, when set, authenticates after the (possibly upgraded) greeting.
	Auth *AuthConfig

	// Resolver performs MX lookups for DialMX. Nil selects the stdlib
	// resolver.
	Resolver dns.Resolver
}

// NewDialer creates a Dialer with default configuration.
func NewDialer(host string, port int) *Dialer {
	if port == 0 {
		port = DefaultPort
	}
	return &Dialer{Host: host, Port: port, Config: DefaultConfig()}
}

// Dial connects, greets, optionally upgrades to TLS and authenticates, and
// returns a session ready for transactions.
func (d *Dialer) Dial() (*Session, error) {
	address := net.JoinHostPort(d.Host, strconv.Itoa(d.port()))
	return d.dial(address)
}

func (d *Dialer) port() int {
	if d.Port != 0 {
		return d.Port
	}
	if d.SSL {
		return DefaultPortSSL
	}
	return DefaultPort
}

func (d *Dialer) dial(address string) (*Session, error) {
	sess := NewSession(d.Config)

	var err error
	if d.SSL {
		err = sess.ConnectTLS(address)
	} else {
		err = sess.Connect(address)
	}
	if err != nil {
		return nil, err
	}

	if err := sess.Hello(""); err != nil {
		sess.Close()
		return nil, err
	}

	if d.StartTLS && !d.SSL {
		if sess.Capabilities().Has(ExtSTARTTLS) {
			if err := sess.StartTLS(); err != nil {
				sess.Close()
				return nil, err
			}
			// Pre-TLS capabilities are stale; greet again.
			if err := sess.Hello(""); err != nil {
				sess.Close()
				return nil, err
			}
		} else if d.RequireTLS {
			sess.Close()
			return nil, ErrTLSNotSupported
		}
	}
	if d.RequireTLS && !sess.TLSActive() {
		sess.Close()
		return nil, ErrTLSNotSupported
	}

	if d.Auth != nil {
		if err := sess.Authenticate(*d.Auth); err != nil {
			sess.Close()
			return nil, err
		}
	}

	return sess, nil
}

// DialMX resolves the domain's MX records and dials the exchangers in
// preference order on port 25, returning a session to the first one that
// completes the greeting. A domain with no MX records falls back to its own
// address per RFC 5321 §5.1.
func (d *Dialer) DialMX(ctx context.Context, domain string) (*Session, error) {
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		domain = ascii
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = dns.NewStdResolver()
	}

	hosts := []string{domain}
	records, err := resolver.LookupMX(ctx, domain)
	switch err {
	case nil:
		hosts = hosts[:0]
		for _, mx := range records {
			hosts = append(hosts, mx.Host)
		}
	case dns.ErrNotFound:
		// Implicit MX: treat the domain itself as the exchanger.
	default:
		return nil, fmt.Errorf("resolving MX for %s: %w", domain, err)
	}

	var lastErr error
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess, err := d.dial(net.JoinHostPort(host, strconv.Itoa(DefaultPort)))
		if err == nil {
			return sess, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no reachable exchanger for %s: %w", domain, lastErr)
}

// Pool maintains warm sessions for reuse across transactions. Sessions are
// liveness-checked with NOOP on checkout; dead ones are replaced.
type Pool struct {
	dialer *Dialer
	mu     sync.Mutex
	conns  chan *Session
	closed bool
}

// NewPool creates a session pool of the given size.
func NewPool(dialer *Dialer, size int) *Pool {
	if size <= 0 {
		size = 5
	}
	return &Pool{
		dialer: dialer,
		conns:  make(chan *Session, size),
	}
}

// Get retrieves a live session from the pool, dialing a new one if needed.
func (p *Pool) Get() (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrNotConnected
	}
	p.mu.Unlock()

	select {
	case sess := <-p.conns:
		if err := sess.Noop(); err == nil {
			return sess, nil
		}
		sess.Close()
	default:
	}

	return p.dialer.Dial()
}

// Put returns a session to the pool, closing it when the pool is full or
// already closed. The send happens under the pool mutex so a concurrent
// Close cannot close the channel mid-send.
func (p *Pool) Put(sess *Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sess.Close()
		return
	}

	select {
	case p.conns <- sess:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		sess.Quit()
	}
}

// Close closes the pool and every pooled session. Safe to call more than
// once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.conns)
	p.mu.Unlock()

	for sess := range p.conns {
		sess.Quit()
	}
	return nil
}
