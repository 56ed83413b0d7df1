package sasl

// Plain implements the PLAIN mechanism (RFC 4616). Use only over TLS:
// credentials are transmitted in clear text.
type Plain struct {
	Identity string // authorization identity (authzid), usually empty
	Username string
	Password string
}

// NewPlain creates a PLAIN mechanism for the given credentials.
func NewPlain(username, password string) *Plain {
	return &Plain{Username: username, Password: password}
}

// Name returns "PLAIN".
func (p *Plain) Name() string {
	return "PLAIN"
}

// Start returns the single authzid NUL authcid NUL passwd response, sent
// inline with the AUTH command.
func (p *Plain) Start() (string, error) {
	if p.Username == "" {
		return "", ErrMissingCredentials
	}
	return p.Identity + "\x00" + p.Username + "\x00" + p.Password, nil
}

// Next handles the empty-challenge case for servers that do not accept an
// inline initial response.
func (p *Plain) Next(challenge string) (string, error) {
	if challenge != "" {
		return "", ErrUnexpectedChallenge
	}
	return p.Start()
}
