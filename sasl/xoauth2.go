package sasl

// XOAuth2 implements the XOAUTH2 mechanism used by Gmail and Outlook. The
// access token comes from a caller-supplied TokenProvider, fetched fresh at
// the start of each exchange.
type XOAuth2 struct {
	Username string
	Provider TokenProvider
}

// NewXOAuth2 creates an XOAUTH2 mechanism backed by a token provider.
func NewXOAuth2(username string, provider TokenProvider) *XOAuth2 {
	return &XOAuth2{Username: username, Provider: provider}
}

// Name returns "XOAUTH2".
func (x *XOAuth2) Name() string {
	return "XOAUTH2"
}

// Start builds the SASL XOAUTH2 initial response, sent inline.
func (x *XOAuth2) Start() (string, error) {
	if x.Provider == nil {
		return "", ErrMissingCredentials
	}
	token, err := x.Provider.AccessToken()
	if err != nil {
		return "", err
	}
	return "user=" + x.Username + "\x01auth=Bearer " + token + "\x01\x01", nil
}

// Next handles the error challenge: on failure the server sends a JSON
// status blob and expects an empty response before issuing the final
// negative reply.
func (x *XOAuth2) Next(challenge string) (string, error) {
	return "", nil
}
