package talon

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/synqronlabs/talon/dns"
)

func dialerFor(t *testing.T, addr string) *Dialer {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	d := NewDialer(host, port)
	d.Config = testConfig()
	return d
}

func TestDialerDial(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{"250 mail.example.com"}},
	})

	d := dialerFor(t, addr)
	sess, err := d.Dial()
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sess.Close()

	if sess.State() != StateGreeted {
		t.Errorf("State = %v, want %v", sess.State(), StateGreeted)
	}
}

func TestDialerDialWithAuth(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{"250-mail.example.com", "250 AUTH PLAIN"}},
		{expect: "AUTH PLAIN", send: []string{"235 ok"}},
	})

	d := dialerFor(t, addr)
	d.Auth = &AuthConfig{Username: "joe", Password: "pw"}
	sess, err := d.Dial()
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sess.Close()

	if sess.State() != StateAuthenticated {
		t.Errorf("State = %v, want %v", sess.State(), StateAuthenticated)
	}
}

func TestDialerRequireTLSUnsupported(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{"250 mail.example.com"}},
	})

	d := dialerFor(t, addr)
	d.StartTLS = true
	d.RequireTLS = true
	if _, err := d.Dial(); !errors.Is(err, ErrTLSNotSupported) {
		t.Fatalf("Dial = %v, want ErrTLSNotSupported", err)
	}
}

func TestDialMXResolutionFailure(t *testing.T) {
	d := NewDialer("unused", 0)
	d.Config = testConfig()
	d.Resolver = dns.MockResolver{Fail: []string{"mx example.com"}}

	_, err := d.DialMX(context.Background(), "example.com")
	if !errors.Is(err, dns.ErrServFail) {
		t.Fatalf("DialMX = %v, want ErrServFail", err)
	}
}

func TestDialMXHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDialer("unused", 0)
	d.Config = testConfig()
	d.Resolver = dns.MockResolver{MX: map[string][]dns.MX{
		"example.com": {{Host: "mx.example.com", Pref: 10}},
	}}

	if _, err := d.DialMX(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("DialMX = %v, want context.Canceled", err)
	}
}

func TestPoolReusesSessions(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{"250 mail.example.com"}},
		{expect: "NOOP", send: []string{"250 ok"}},
	})

	pool := NewPool(dialerFor(t, addr), 2)
	defer pool.Close()

	sess, err := pool.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	id := sess.ID()
	pool.Put(sess)

	// The pooled session passes its NOOP liveness check and comes back.
	again, err := pool.Get()
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if again.ID() != id {
		t.Errorf("expected the pooled session back, got a new one")
	}
	again.Close()
}

func TestPoolClosed(t *testing.T) {
	addr := scriptedServer(t, []string{"220 ready"}, []step{
		{expect: "EHLO", send: []string{"250 mail.example.com"}},
	})

	pool := NewPool(dialerFor(t, addr), 1)
	sess, err := pool.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pool.Close()

	if _, err := pool.Get(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Get after Close = %v, want ErrNotConnected", err)
	}

	// Put after Close must close the session rather than pooling it.
	pool.Put(sess)
	if sess.State() != StateDisconnected {
		t.Errorf("State = %v, want %v", sess.State(), StateDisconnected)
	}
}

func TestPoolPutCloseConcurrent(t *testing.T) {
	// Put sends under the pool mutex, so a concurrent Close can never close
	// the channel mid-send. Disconnected sessions keep the teardown a no-op.
	for i := 0; i < 50; i++ {
		pool := NewPool(NewDialer("unused", 0), 1)

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pool.Put(NewSession(testConfig()))
			}()
		}
		pool.Close()
		wg.Wait()

		// Close is idempotent.
		pool.Close()
	}
}
