package sasl

import (
	"errors"
	"testing"
)

func TestPlainInitialResponse(t *testing.T) {
	m := NewPlain("user@example.com", "secret")
	initial, err := m.Start()
	if err != nil {
		t.Fatal(err)
	}
	if initial != "\x00user@example.com\x00secret" {
		t.Errorf("initial = %q", initial)
	}

	m.Identity = "admin"
	initial, err = m.Start()
	if err != nil {
		t.Fatal(err)
	}
	if initial != "admin\x00user@example.com\x00secret" {
		t.Errorf("initial with authzid = %q", initial)
	}
}

func TestPlainEmptyChallengeResends(t *testing.T) {
	m := NewPlain("u", "p")
	resp, err := m.Next("")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "\x00u\x00p" {
		t.Errorf("resp = %q", resp)
	}
	if _, err := m.Next("unexpected"); !errors.Is(err, ErrUnexpectedChallenge) {
		t.Errorf("err = %v, want ErrUnexpectedChallenge", err)
	}
}

func TestPlainMissingCredentials(t *testing.T) {
	m := NewPlain("", "p")
	if _, err := m.Start(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestLoginSequence(t *testing.T) {
	m := NewLogin("joe", "hunter2")
	initial, err := m.Start()
	if err != nil {
		t.Fatal(err)
	}
	if initial != "" {
		t.Errorf("LOGIN must send no initial response, got %q", initial)
	}

	resp, err := m.Next("Username:")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "joe" {
		t.Errorf("first response = %q", resp)
	}

	resp, err = m.Next("Password:")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "hunter2" {
		t.Errorf("second response = %q", resp)
	}

	if _, err := m.Next("again?"); !errors.Is(err, ErrUnexpectedChallenge) {
		t.Errorf("third challenge err = %v", err)
	}
}

func TestLoginIgnoresPromptText(t *testing.T) {
	// Localized or garbled prompts must not matter; only the order does.
	m := NewLogin("joe", "hunter2")
	m.Start()
	if resp, _ := m.Next("Benutzername:"); resp != "joe" {
		t.Errorf("resp = %q", resp)
	}
	if resp, _ := m.Next("Kennwort:"); resp != "hunter2" {
		t.Errorf("resp = %q", resp)
	}
}

func TestCramMD5Vector(t *testing.T) {
	// Worked example from RFC 2195 §2.
	m := NewCramMD5("tim", "tanstaaftanstaaf")
	if _, err := m.Start(); err != nil {
		t.Fatal(err)
	}
	resp, err := m.Next("<1896.697170952@postoffice.reston.mci.net>")
	if err != nil {
		t.Fatal(err)
	}
	want := "tim b913a602c7eda7a495b4e6e7334d3890"
	if resp != want {
		t.Errorf("resp = %q, want %q", resp, want)
	}
}

func TestXOAuth2Format(t *testing.T) {
	m := NewXOAuth2("someuser@example.com", TokenProviderFunc(func() (string, error) {
		return "ya29.token", nil
	}))
	initial, err := m.Start()
	if err != nil {
		t.Fatal(err)
	}
	want := "user=someuser@example.com\x01auth=Bearer ya29.token\x01\x01"
	if initial != want {
		t.Errorf("initial = %q, want %q", initial, want)
	}

	// Error challenges get an empty response so the server can deliver the
	// final negative reply.
	resp, err := m.Next(`{"status":"401"}`)
	if err != nil || resp != "" {
		t.Errorf("Next = %q, %v", resp, err)
	}
}

func TestXOAuth2ProviderError(t *testing.T) {
	wantErr := errors.New("token refresh failed")
	m := NewXOAuth2("u", TokenProviderFunc(func() (string, error) {
		return "", wantErr
	}))
	if _, err := m.Start(); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

type fakeNTLMBuilder struct{}

func (fakeNTLMBuilder) Type1(domain, workstation string) ([]byte, error) {
	return []byte("T1:" + domain + ":" + workstation), nil
}

func (fakeNTLMBuilder) Type3(type2 []byte, username, password, domain, workstation string) ([]byte, error) {
	return []byte("T3:" + string(type2) + ":" + username), nil
}

func TestNTLMSequence(t *testing.T) {
	m := NewNTLM("joe", "pw", "CORP", "WS01", fakeNTLMBuilder{})
	initial, err := m.Start()
	if err != nil {
		t.Fatal(err)
	}
	if initial != "T1:CORP:WS01" {
		t.Errorf("initial = %q", initial)
	}

	resp, err := m.Next("challenge-blob")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "T3:challenge-blob:joe" {
		t.Errorf("resp = %q", resp)
	}
}

func TestNTLMRequiresBuilder(t *testing.T) {
	m := NewNTLM("joe", "pw", "", "", nil)
	if _, err := m.Start(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestNTLMChallengeBeforeStart(t *testing.T) {
	m := NewNTLM("joe", "pw", "", "", fakeNTLMBuilder{})
	if _, err := m.Next("x"); !errors.Is(err, ErrUnexpectedChallenge) {
		t.Errorf("err = %v, want ErrUnexpectedChallenge", err)
	}
}
