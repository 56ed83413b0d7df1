package dns

import (
	"context"
	"net"
	"slices"
)

// MockResolver is a Resolver for tests. Keys are bare domain names without
// the trailing dot.
type MockResolver struct {
	MX map[string][]MX
	A  map[string][]string

	// Fail lists lookups that return ErrServFail, as "type name" pairs,
	// e.g. "mx example.com".
	Fail []string
}

var _ Resolver = MockResolver{}

// LookupMX returns the configured MX records sorted by preference.
func (r MockResolver) LookupMX(ctx context.Context, domain string) ([]MX, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if slices.Contains(r.Fail, "mx "+domain) {
		return nil, ErrServFail
	}
	records, ok := r.MX[domain]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}
	out := slices.Clone(records)
	sortMX(out)
	return out, nil
}

// LookupIP returns the configured addresses.
func (r MockResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if slices.Contains(r.Fail, "a "+host) {
		return nil, ErrServFail
	}
	addrs, ok := r.A[host]
	if !ok || len(addrs) == 0 {
		return nil, ErrNotFound
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}
