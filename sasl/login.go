package sasl

// Login state constants
const (
	loginStateInitial = iota
	loginStateUsername
	loginStatePassword
	loginStateDone
)

// Login implements the LOGIN mechanism: two challenge/response round-trips
// exchanging the username and password.
// DEPRECATED by the IETF in favor of PLAIN; still widely deployed.
type Login struct {
	Username string
	Password string
	state    int
}

// NewLogin creates a LOGIN mechanism for the given credentials.
func NewLogin(username, password string) *Login {
	return &Login{Username: username, Password: password}
}

// Name returns "LOGIN".
func (l *Login) Name() string {
	return "LOGIN"
}

// Start returns no initial response; LOGIN waits for the first challenge.
func (l *Login) Start() (string, error) {
	if l.Username == "" {
		return "", ErrMissingCredentials
	}
	l.state = loginStateInitial
	return "", nil
}

// Next answers the "Username:" and "Password:" prompts in order. The prompt
// text is not inspected: some servers localize or misspell it.
func (l *Login) Next(challenge string) (string, error) {
	switch l.state {
	case loginStateInitial:
		l.state = loginStateUsername
		return l.Username, nil
	case loginStateUsername:
		l.state = loginStatePassword
		return l.Password, nil
	default:
		l.state = loginStateDone
		return "", ErrUnexpectedChallenge
	}
}
