package talon

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyConnected  = errors.New("smtp: already connected")
	ErrNotConnected      = errors.New("smtp: no connection established")
	ErrConnectionFailed  = errors.New("smtp: connection failed")
	ErrCommandTooLong    = errors.New("smtp: command line exceeds 998 bytes")
	ErrProtocolViolation = errors.New("smtp: protocol violation")
	ErrUnexpectedCode    = errors.New("smtp: unexpected reply code")
	ErrAuthFailed        = errors.New("smtp: authentication failed")
	ErrTLSUpgradeFailed  = errors.New("smtp: TLS upgrade failed")
	ErrTLSNotSupported   = errors.New("smtp: STARTTLS not supported by server")
	ErrTLSAlreadyActive  = errors.New("smtp: TLS already active")
	ErrNotGreeted        = errors.New("smtp: session not greeted (EHLO/HELO required)")
	ErrNoMechanism       = errors.New("smtp: no supported authentication mechanism available")
	ErrSessionUnusable   = errors.New("smtp: session unusable after I/O failure")
)

// ErrorKind classifies a session failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConnectionFailure
	KindProtocolViolation
	KindUnexpectedCode
	KindAuthFailure
	KindTLSUpgradeFailure
	KindTimeout
	KindAlreadyConnected
	KindNotConnected
)

var errorKindNames = map[ErrorKind]string{
	KindNone:              "none",
	KindConnectionFailure: "connection-failure",
	KindProtocolViolation: "protocol-violation",
	KindUnexpectedCode:    "unexpected-reply-code",
	KindAuthFailure:       "authentication-failure",
	KindTLSUpgradeFailure: "tls-upgrade-failure",
	KindTimeout:           "timeout",
	KindAlreadyConnected:  "already-connected",
	KindNotConnected:      "not-connected",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrorRecord holds structured detail about the most recent failure.
// It is overwritten, not accumulated: each command that can fail clears the
// record on entry and fills it on failure.
type ErrorRecord struct {
	Kind         ErrorKind
	Detail       string
	Code         int    // SMTP reply code, if a reply was involved
	EnhancedCode string // RFC 2034 enhanced status code, if present
}

// IsZero reports whether the record holds no failure.
func (r *ErrorRecord) IsZero() bool {
	return r == nil || r.Kind == KindNone
}

func (r *ErrorRecord) String() string {
	if r.IsZero() {
		return "ok"
	}
	if r.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", r.Kind, r.Detail, r.Code)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

// SMTPError represents a reply code outside the accepted set for a command.
type SMTPError struct {
	Code         int
	EnhancedCode string
	Message      string
}

func (e *SMTPError) Error() string {
	if e.EnhancedCode != "" {
		return fmt.Sprintf("SMTP %d %s: %s", e.Code, e.EnhancedCode, e.Message)
	}
	return fmt.Sprintf("SMTP %d: %s", e.Code, e.Message)
}

// IsPermanent returns true if this is a permanent failure (5xx).
func (e *SMTPError) IsPermanent() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTransient returns true if this is a transient failure (4xx).
func (e *SMTPError) IsTransient() bool {
	return e.Code >= 400 && e.Code < 500
}
