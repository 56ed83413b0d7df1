package talon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	addr := scriptedServer(t, []string{"220 mail.example.com ESMTP ready"}, []step{
		{expect: "EHLO", send: []string{
			"250-mail.example.com",
			"250-SIZE 10485760",
			"250-STARTTLS",
			"250-PIPELINING",
			"250-8BITMIME",
			"250-DSN",
			"250-ENHANCEDSTATUSCODES",
			"250 AUTH PLAIN LOGIN",
		}},
	})

	report, err := Probe(addr)
	require.NoError(t, err)

	assert.True(t, report.IsESMTP)
	assert.Equal(t, "mail.example.com", report.Hostname)
	assert.Equal(t, "mail.example.com ESMTP ready", report.Greeting)
	assert.True(t, report.TLS)
	assert.True(t, report.Pipelining)
	assert.True(t, report.EightBitMIME)
	assert.True(t, report.DSN)
	assert.True(t, report.EnhancedStatusCodes)
	assert.False(t, report.SMTPUTF8)
	assert.Equal(t, int64(10485760), report.MaxSize)
	assert.Equal(t, []string{"PLAIN", "LOGIN"}, report.Auth)
}

func TestProbeHeloOnlyServer(t *testing.T) {
	addr := scriptedServer(t, []string{"220 legacy ready"}, []step{
		{expect: "EHLO", send: []string{"500 unrecognized"}},
		{expect: "HELO", send: []string{"250 legacy.example.net"}},
	})

	report, err := Probe(addr)
	require.NoError(t, err)

	assert.False(t, report.IsESMTP)
	assert.Equal(t, "legacy.example.net", report.Hostname)
	assert.False(t, report.TLS)
	assert.Empty(t, report.Auth)
}

func TestSnapshotRoundTrip(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{
			"250-mail.example.com",
			"250-SIZE 1000",
			"250 STARTTLS",
		}},
	})

	sess := NewSession(testConfig())
	require.NoError(t, sess.Connect(addr))
	defer sess.Close()

	require.Nil(t, sess.Snapshot(), "no snapshot before Hello")
	require.NoError(t, sess.Hello(""))

	snap := sess.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, sess.ID(), snap.SessionID)
	assert.Equal(t, "mail.example.com", snap.Hostname)
	assert.Equal(t, "EHLO", snap.Source)
	assert.False(t, snap.TLS)
	assert.WithinDuration(t, time.Now().UTC(), snap.ProbedAt, 5*time.Second)

	encoded, err := snap.MarshalMsg()
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, decoded.UnmarshalMsg(encoded))

	assert.Equal(t, snap.SessionID, decoded.SessionID)
	assert.Equal(t, snap.Hostname, decoded.Hostname)
	assert.Equal(t, snap.Source, decoded.Source)
	assert.Equal(t, snap.TLS, decoded.TLS)
	assert.Equal(t, []string{"1000"}, decoded.Extensions["SIZE"])
	assert.Contains(t, decoded.Extensions, "STARTTLS")
	assert.True(t, snap.ProbedAt.Equal(decoded.ProbedAt))
}
