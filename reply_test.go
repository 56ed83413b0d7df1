package talon

import "testing"

func TestReplyClassification(t *testing.T) {
	cases := []struct {
		code         int
		success      bool
		intermediate bool
		transient    bool
		permanent    bool
	}{
		{code: 220, success: true},
		{code: 250, success: true},
		{code: 354, intermediate: true},
		{code: 421, transient: true},
		{code: 454, transient: true},
		{code: 550, permanent: true},
		{code: 554, permanent: true},
	}
	for _, tc := range cases {
		r := &Reply{Code: tc.code}
		if r.IsSuccess() != tc.success {
			t.Errorf("%d IsSuccess = %v", tc.code, r.IsSuccess())
		}
		if r.IsIntermediate() != tc.intermediate {
			t.Errorf("%d IsIntermediate = %v", tc.code, r.IsIntermediate())
		}
		if r.IsTransientError() != tc.transient {
			t.Errorf("%d IsTransientError = %v", tc.code, r.IsTransientError())
		}
		if r.IsPermanentError() != tc.permanent {
			t.Errorf("%d IsPermanentError = %v", tc.code, r.IsPermanentError())
		}
	}
}

func TestReplyText(t *testing.T) {
	r := &Reply{Code: 250, Lines: []string{"first", "second"}}
	if got := r.Text(); got != "first\nsecond" {
		t.Errorf("Text = %q", got)
	}
}

func TestParseEnhancedCode(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"2.0.0 Ok: queued as ABC123", "2.0.0"},
		{"5.1.1 mailbox unavailable", "5.1.1"},
		{"2.0.0", "2.0.0"},
		{"Ok", ""},
		{"2.0 short", ""},
		{"2.0.0.0 long", ""},
		{"2.x.0 nonnumeric", ""},
		{"2..0 empty part", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseEnhancedCode(tc.text); got != tc.want {
			t.Errorf("parseEnhancedCode(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestSMTPErrorClassification(t *testing.T) {
	perm := &SMTPError{Code: 550, EnhancedCode: "5.1.1", Message: "no such user"}
	if !perm.IsPermanent() || perm.IsTransient() {
		t.Errorf("550 classification wrong")
	}
	trans := &SMTPError{Code: 421, Message: "try later"}
	if !trans.IsTransient() || trans.IsPermanent() {
		t.Errorf("421 classification wrong")
	}
}
