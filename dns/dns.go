// Package dns provides the name resolution a mail client needs: MX lookup
// for direct-to-MX delivery and host address lookup, with a miekg/dns-backed
// resolver, a stdlib resolver, and a mock for tests.
package dns

import (
	"context"
	"errors"
	"net"
	"sort"
)

var (
	// ErrNotFound indicates the name does not exist (NXDOMAIN) or has no
	// records of the requested type.
	ErrNotFound = errors.New("dns: records not found")

	// ErrTimeout indicates the query timed out.
	ErrTimeout = errors.New("dns: query timeout")

	// ErrServFail indicates a temporary server-side failure.
	ErrServFail = errors.New("dns: server failure")
)

// MX is one mail exchanger record.
type MX struct {
	Host string
	Pref uint16
}

// Resolver answers the lookups the SMTP dialer performs.
type Resolver interface {
	// LookupMX returns the domain's mail exchangers sorted by preference,
	// most preferred first.
	LookupMX(ctx context.Context, domain string) ([]MX, error)

	// LookupIP returns the A/AAAA addresses of a host.
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// sortMX orders records by preference, most preferred (lowest value) first.
// Equal preferences keep their response order.
func sortMX(records []MX) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})
}

// convertError maps standard library DNS errors to package errors.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ErrNotFound
		}
		if dnsErr.IsTimeout {
			return ErrTimeout
		}
		if dnsErr.IsTemporary {
			return ErrServFail
		}
	}
	return err
}
