package sasl

// NTLM implements the NTLM mechanism as a three-message exchange. Message
// construction is delegated to a caller-supplied NTLMBuilder; this type only
// sequences the Type1/Type2/Type3 flow.
type NTLM struct {
	Username    string
	Password    string
	Domain      string
	Workstation string
	Builder     NTLMBuilder
	started     bool
}

// NewNTLM creates an NTLM mechanism backed by a message builder.
func NewNTLM(username, password, domain, workstation string, builder NTLMBuilder) *NTLM {
	return &NTLM{
		Username:    username,
		Password:    password,
		Domain:      domain,
		Workstation: workstation,
		Builder:     builder,
	}
}

// Name returns "NTLM".
func (n *NTLM) Name() string {
	return "NTLM"
}

// Start builds the Type1 negotiate message, sent inline.
func (n *NTLM) Start() (string, error) {
	if n.Builder == nil {
		return "", ErrMissingCredentials
	}
	msg, err := n.Builder.Type1(n.Domain, n.Workstation)
	if err != nil {
		return "", err
	}
	n.started = true
	return string(msg), nil
}

// Next consumes the Type2 challenge and builds the Type3 authenticate
// message.
func (n *NTLM) Next(challenge string) (string, error) {
	if !n.started {
		return "", ErrUnexpectedChallenge
	}
	msg, err := n.Builder.Type3([]byte(challenge), n.Username, n.Password, n.Domain, n.Workstation)
	if err != nil {
		return "", err
	}
	return string(msg), nil
}
