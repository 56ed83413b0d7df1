package talon

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/synqronlabs/talon/sasl"
)

// AuthConfig holds authentication credentials and mechanism selection.
type AuthConfig struct {
	Username string
	Password string

	// Mechanism forces a specific SASL mechanism. When empty the strongest
	// mechanism advertised by the server is selected in a fixed preference
	// order: CRAM-MD5 > LOGIN > PLAIN. XOAUTH2 and NTLM are never
	// auto-selected; they must be requested explicitly.
	Mechanism string

	Identity    string // PLAIN authorization identity (authzid)
	Realm       string // NTLM domain
	Workstation string // NTLM workstation name

	TokenProvider sasl.TokenProvider // required for XOAUTH2
	NTLMBuilder   sasl.NTLMBuilder   // required for NTLM
}

// authPreference is the auto-selection order, strongest first.
var authPreference = []string{"CRAM-MD5", "LOGIN", "PLAIN"}

// Authenticate performs SMTP AUTH (RFC 4954). Precondition: the session is
// greeted and the capability set is populated. Any step receiving an
// unexpected code aborts the exchange, records the server's text, and does
// not transition to Authenticated.
func (s *Session) Authenticate(cfg AuthConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.state < StateGreeted || s.caps == nil {
		s.fail(KindAuthFailure, "AUTH before EHLO/HELO", nil)
		return ErrNotGreeted
	}

	mech, err := s.selectMechanism(cfg)
	if err != nil {
		return err
	}
	return s.authenticate(mech)
}

// AuthenticateWith runs the AUTH dialogue with a caller-supplied mechanism,
// bypassing selection. The mechanism is not checked against the server's
// advertised list.
func (s *Session) AuthenticateWith(mech sasl.Mechanism) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearErr()
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.state < StateGreeted {
		s.fail(KindAuthFailure, "AUTH before EHLO/HELO", nil)
		return ErrNotGreeted
	}
	return s.authenticate(mech)
}

// selectMechanism resolves the configured or strongest advertised mechanism.
func (s *Session) selectMechanism(cfg AuthConfig) (sasl.Mechanism, error) {
	requested := strings.ToUpper(cfg.Mechanism)

	if requested == "" {
		for _, name := range authPreference {
			if s.caps.SupportsAuth(name) {
				return s.buildMechanism(name, cfg)
			}
		}
		s.fail(KindAuthFailure, "no mutually supported mechanism (server offers "+
			strings.Join(s.caps.AuthMechanisms(), " ")+")", nil)
		return nil, ErrNoMechanism
	}

	// NTLM proceeds on explicit request even when not advertised; some
	// servers only reveal it after the exchange begins.
	if requested != "NTLM" && !s.caps.SupportsAuth(requested) {
		s.fail(KindAuthFailure, "mechanism "+requested+" not advertised by server", nil)
		return nil, fmt.Errorf("%w: %s not advertised", ErrNoMechanism, requested)
	}
	return s.buildMechanism(requested, cfg)
}

func (s *Session) buildMechanism(name string, cfg AuthConfig) (sasl.Mechanism, error) {
	switch name {
	case "PLAIN":
		return &sasl.Plain{Identity: cfg.Identity, Username: cfg.Username, Password: cfg.Password}, nil
	case "LOGIN":
		return sasl.NewLogin(cfg.Username, cfg.Password), nil
	case "CRAM-MD5":
		return sasl.NewCramMD5(cfg.Username, cfg.Password), nil
	case "XOAUTH2":
		if cfg.TokenProvider == nil {
			s.fail(KindAuthFailure, "XOAUTH2 requested without a token provider", nil)
			return nil, fmt.Errorf("%w: XOAUTH2 requires a token provider", ErrAuthFailed)
		}
		return sasl.NewXOAuth2(cfg.Username, cfg.TokenProvider), nil
	case "NTLM":
		if cfg.NTLMBuilder == nil {
			s.fail(KindAuthFailure, "NTLM requested without a message builder", nil)
			return nil, fmt.Errorf("%w: NTLM requires a message builder", ErrAuthFailed)
		}
		return sasl.NewNTLM(cfg.Username, cfg.Password, cfg.Realm, cfg.Workstation, cfg.NTLMBuilder), nil
	}
	s.fail(KindAuthFailure, "unsupported mechanism "+name, nil)
	return nil, fmt.Errorf("%w: unsupported mechanism %s", ErrAuthFailed, name)
}

// authenticate drives the AUTH command and its 334 challenge loop.
func (s *Session) authenticate(mech sasl.Mechanism) error {
	initial, err := mech.Start()
	if err != nil {
		s.fail(KindAuthFailure, mech.Name()+": "+err.Error(), nil)
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	line := "AUTH " + mech.Name()
	shown := line
	if initial != "" {
		line += " " + base64.StdEncoding.EncodeToString([]byte(initial))
		shown += " [credentials hidden]"
	}

	reply, err := s.cmdRedacted("AUTH", line, shown, 235, 334)
	if err != nil {
		return s.authAbort(reply, err)
	}

	for reply.Code == 334 {
		challenge, derr := base64.StdEncoding.DecodeString(reply.Text())
		if derr != nil {
			s.authCancel()
			s.fail(KindAuthFailure, mech.Name()+": malformed challenge: "+derr.Error(), reply)
			return fmt.Errorf("%w: malformed challenge", ErrAuthFailed)
		}

		response, merr := mech.Next(string(challenge))
		if merr != nil {
			s.authCancel()
			s.fail(KindAuthFailure, mech.Name()+": "+merr.Error(), reply)
			return fmt.Errorf("%w: %v", ErrAuthFailed, merr)
		}

		reply, err = s.cmdRedacted("AUTH",
			base64.StdEncoding.EncodeToString([]byte(response)), "[credentials hidden]", 235, 334)
		if err != nil {
			return s.authAbort(reply, err)
		}
	}

	s.authed = true
	s.state = StateAuthenticated
	s.debugf(DebugConnection, "session %s: authenticated via %s", s.id, mech.Name())
	return nil
}

// authAbort normalizes a failed AUTH step: reply-code mismatches become
// authentication failures carrying the server's text; transport errors pass
// through with their record already set.
func (s *Session) authAbort(reply *Reply, err error) error {
	if reply == nil {
		return err
	}
	s.fail(KindAuthFailure, "AUTH: "+reply.Text(), reply)
	return fmt.Errorf("%w: %s", ErrAuthFailed, reply.Text())
}

// authCancel sends the RFC 4954 "*" cancellation and drains the server's
// negative reply, best effort.
func (s *Session) authCancel() {
	if err := s.writeLine("*"); err == nil {
		s.debug(DebugClient, "C: *")
		s.readReply()
	}
}
