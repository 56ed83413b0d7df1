package talon

import (
	"fmt"
	"time"

	"github.com/tinylib/msgp/msgp"
)

// ServerCapabilities is a point-in-time analysis of what a server offers,
// derived from the capability set after Hello.
type ServerCapabilities struct {
	IsESMTP             bool
	Hostname            string
	Greeting            string
	Extensions          map[Extension][]string
	TLS                 bool
	Auth                []string
	MaxSize             int64
	Pipelining          bool
	EightBitMIME        bool
	SMTPUTF8            bool
	DSN                 bool
	EnhancedStatusCodes bool
}

// Report summarizes the current session's negotiated capabilities.
// Hello must have been called first.
func (s *Session) Report() *ServerCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()

	caps := &ServerCapabilities{
		Greeting:   s.greeting,
		Extensions: make(map[Extension][]string),
	}
	if s.caps == nil {
		return caps
	}

	caps.IsESMTP = s.caps.Source() == "EHLO"
	caps.Hostname = s.caps.ServerName()
	for _, kw := range s.caps.Keywords() {
		params, _ := s.caps.Params(kw)
		caps.Extensions[kw] = params
	}
	caps.TLS = s.caps.Has(ExtSTARTTLS) || s.tlsActive
	caps.Auth = s.caps.AuthMechanisms()
	caps.MaxSize = s.caps.MaxSize()
	caps.Pipelining = s.caps.Has(ExtPipelining)
	caps.EightBitMIME = s.caps.Has(Ext8BitMIME)
	caps.SMTPUTF8 = s.caps.Has(ExtSMTPUTF8)
	caps.DSN = s.caps.Has(ExtDSN)
	caps.EnhancedStatusCodes = s.caps.Has(ExtEnhancedStatusCodes)
	return caps
}

// Probe connects to a server, greets it, and returns its capabilities.
func Probe(address string) (*ServerCapabilities, error) {
	return ProbeWithConfig(address, nil)
}

// ProbeWithConfig probes a server with custom configuration.
func ProbeWithConfig(address string, config *Config) (*ServerCapabilities, error) {
	sess := NewSession(config)
	if err := sess.Connect(address); err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Hello(""); err != nil {
		return nil, err
	}
	return sess.Report(), nil
}

// ProbeTLS probes a server over implicit TLS (typically port 465).
func ProbeTLS(address string) (*ServerCapabilities, error) {
	sess := NewSession(nil)
	if err := sess.ConnectTLS(address); err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Hello(""); err != nil {
		return nil, err
	}
	return sess.Report(), nil
}

// Snapshot captures the capability report for caching, stamped with the
// probing session's id and time.
type Snapshot struct {
	SessionID  string
	Hostname   string
	Source     string // EHLO or HELO
	TLS        bool
	Extensions map[string][]string
	ProbedAt   time.Time
}

// Snapshot captures the session's negotiated capabilities. Returns nil
// before Hello.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.caps == nil {
		return nil
	}
	snap := &Snapshot{
		SessionID:  s.id,
		Hostname:   s.caps.ServerName(),
		Source:     s.caps.Source(),
		TLS:        s.tlsActive,
		Extensions: make(map[string][]string, len(s.caps.exts)),
		ProbedAt:   time.Now().UTC(),
	}
	for kw, params := range s.caps.exts {
		snap.Extensions[string(kw)] = params
	}
	return snap
}

// MarshalMsg encodes the snapshot as MessagePack.
func (sn *Snapshot) MarshalMsg() ([]byte, error) {
	b := msgp.AppendMapHeader(nil, 6)

	b = msgp.AppendString(b, "session_id")
	b = msgp.AppendString(b, sn.SessionID)
	b = msgp.AppendString(b, "hostname")
	b = msgp.AppendString(b, sn.Hostname)
	b = msgp.AppendString(b, "source")
	b = msgp.AppendString(b, sn.Source)
	b = msgp.AppendString(b, "tls")
	b = msgp.AppendBool(b, sn.TLS)

	b = msgp.AppendString(b, "extensions")
	b = msgp.AppendMapHeader(b, uint32(len(sn.Extensions)))
	for kw, params := range sn.Extensions {
		b = msgp.AppendString(b, kw)
		b = msgp.AppendArrayHeader(b, uint32(len(params)))
		for _, p := range params {
			b = msgp.AppendString(b, p)
		}
	}

	b = msgp.AppendString(b, "probed_at")
	b = msgp.AppendTime(b, sn.ProbedAt)
	return b, nil
}

// UnmarshalMsg decodes a snapshot produced by MarshalMsg.
func (sn *Snapshot) UnmarshalMsg(b []byte) error {
	fields, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	for i := uint32(0); i < fields; i++ {
		var key string
		key, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}

		switch key {
		case "session_id":
			sn.SessionID, b, err = msgp.ReadStringBytes(b)
		case "hostname":
			sn.Hostname, b, err = msgp.ReadStringBytes(b)
		case "source":
			sn.Source, b, err = msgp.ReadStringBytes(b)
		case "tls":
			sn.TLS, b, err = msgp.ReadBoolBytes(b)
		case "extensions":
			var entries uint32
			entries, b, err = msgp.ReadMapHeaderBytes(b)
			if err != nil {
				break
			}
			sn.Extensions = make(map[string][]string, entries)
			for j := uint32(0); j < entries; j++ {
				var kw string
				kw, b, err = msgp.ReadStringBytes(b)
				if err != nil {
					break
				}
				var count uint32
				count, b, err = msgp.ReadArrayHeaderBytes(b)
				if err != nil {
					break
				}
				var params []string
				for k := uint32(0); k < count; k++ {
					var p string
					p, b, err = msgp.ReadStringBytes(b)
					if err != nil {
						break
					}
					params = append(params, p)
				}
				if err != nil {
					break
				}
				sn.Extensions[kw] = params
			}
		case "probed_at":
			sn.ProbedAt, b, err = msgp.ReadTimeBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return fmt.Errorf("snapshot: field %s: %w", key, err)
		}
	}
	return nil
}
