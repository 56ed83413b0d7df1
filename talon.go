// Package talon provides an RFC 5321 SMTP client session engine for Go.
//
// Talon is the client-side counterpart to the raven server library. It owns
// a single connection to a mail server and drives it through the SMTP
// command/reply protocol: greeting, EHLO/HELO capability negotiation,
// STARTTLS upgrade, SASL authentication, and mail transactions.
//
// # Quick Start
//
// Open a session, negotiate capabilities, and run a transaction:
//
//	sess := talon.NewSession(nil)
//	if err := sess.Connect("smtp.example.com:587"); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.Hello(""); err != nil {
//	    log.Fatal(err)
//	}
//	if sess.Capabilities().Has(talon.ExtSTARTTLS) {
//	    if err := sess.StartTLS(); err != nil {
//	        log.Fatal(err)
//	    }
//	    // Capabilities are stale after the upgrade; greet again.
//	    if err := sess.Hello(""); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := sess.Authenticate(talon.AuthConfig{Username: "user", Password: "pass"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	sess.Mail("sender@example.com")
//	sess.Rcpt("recipient@example.com")
//	sess.Data(message)
//
// # Error Handling
//
// Every command method returns an error and records structured detail in the
// session's last-error record. Ordinary protocol rejections (for example a
// 550 on RCPT TO) do not poison the session; the caller may inspect
// LastError and continue:
//
//	if err := sess.Rcpt(addr); err != nil {
//	    rec := sess.LastError()
//	    log.Printf("recipient rejected: code=%d detail=%s", rec.Code, rec.Detail)
//	    // The MAIL transaction is still open; try another recipient.
//	}
//
// Only TLS upgrade failures and transport-level I/O errors are fatal to a
// session by convention; close and reconnect after those.
//
// # Debug Output
//
// An injectable sink observes the protocol dialogue at configurable
// verbosity:
//
//	cfg := talon.DefaultConfig()
//	cfg.Debug = talon.DebugServer
//	cfg.Sink = &talon.WriterSink{W: os.Stderr}
//
// # Dialing
//
// The Dialer type bundles connection policy (ports, STARTTLS requirements,
// authentication) and can resolve MX records for direct-to-MX delivery:
//
//	d := talon.NewDialer("smtp.example.com", talon.DefaultPortTLS)
//	d.StartTLS = true
//	sess, err := d.Dial()
//
// # RFC Compliance
//
//   - RFC 5321: Simple Mail Transfer Protocol
//   - RFC 3207: SMTP Service Extension for Secure SMTP over TLS
//   - RFC 4954: SMTP Service Extension for Authentication
//   - RFC 2195: CRAM-MD5 challenge-response
//   - RFC 3461: SMTP Service Extension for Delivery Status Notifications
//   - RFC 2034: SMTP Service Extension for Returning Enhanced Error Codes
package talon
