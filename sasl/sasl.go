// Package sasl implements client-side SASL mechanisms for SMTP AUTH
// (RFC 4954): PLAIN, LOGIN, CRAM-MD5, XOAUTH2, and NTLM.
//
// Challenges and responses cross this interface in decoded (raw) form; the
// session engine handles the base64 framing of the AUTH dialogue.
package sasl

import (
	"errors"
)

var (
	// ErrUnexpectedChallenge is returned when the server issues a challenge
	// the mechanism cannot process.
	ErrUnexpectedChallenge = errors.New("sasl: unexpected server challenge")

	// ErrMissingCredentials is returned when a mechanism is started without
	// the material it needs.
	ErrMissingCredentials = errors.New("sasl: missing credentials")
)

// Mechanism is one client-side SASL exchange. Start produces the optional
// initial response sent inline with the AUTH command; Next answers each
// 334 challenge until the server accepts or rejects the exchange.
type Mechanism interface {
	// Name returns the SASL mechanism name as advertised in the AUTH
	// capability (uppercase).
	Name() string

	// Start returns the initial response, or "" when the mechanism sends
	// nothing until the first challenge.
	Start() (initial string, err error)

	// Next consumes a decoded server challenge and returns the decoded
	// response.
	Next(challenge string) (response string, err error)
}

// TokenProvider produces a valid OAuth 2.0 access token on demand, for the
// XOAUTH2 mechanism. Implementations are responsible for refresh.
type TokenProvider interface {
	AccessToken() (string, error)
}

// TokenProviderFunc adapts a function to the TokenProvider interface.
type TokenProviderFunc func() (string, error)

func (f TokenProviderFunc) AccessToken() (string, error) {
	return f()
}

// NTLMBuilder constructs NTLM negotiation messages. NTLM message layout is
// outside this package's scope; callers supply an implementation.
type NTLMBuilder interface {
	// Type1 builds the negotiate message.
	Type1(domain, workstation string) ([]byte, error)

	// Type3 builds the authenticate message from the server's Type2
	// challenge.
	Type3(type2 []byte, username, password, domain, workstation string) ([]byte, error)
}
