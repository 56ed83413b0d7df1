package sasl

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
)

// CramMD5 implements the CRAM-MD5 mechanism (RFC 2195): the server sends a
// one-time challenge and the client answers with the username and the
// hex-encoded HMAC-MD5 of the challenge keyed by the shared secret. The
// password never crosses the wire.
type CramMD5 struct {
	Username string
	Secret   string
}

// NewCramMD5 creates a CRAM-MD5 mechanism for the given credentials.
func NewCramMD5(username, secret string) *CramMD5 {
	return &CramMD5{Username: username, Secret: secret}
}

// Name returns "CRAM-MD5".
func (c *CramMD5) Name() string {
	return "CRAM-MD5"
}

// Start returns no initial response; the server issues the challenge first.
func (c *CramMD5) Start() (string, error) {
	if c.Username == "" {
		return "", ErrMissingCredentials
	}
	return "", nil
}

// Next computes `username SP hex(HMAC-MD5(challenge, secret))`.
func (c *CramMD5) Next(challenge string) (string, error) {
	mac := hmac.New(md5.New, []byte(c.Secret))
	mac.Write([]byte(challenge))
	return c.Username + " " + hex.EncodeToString(mac.Sum(nil)), nil
}
