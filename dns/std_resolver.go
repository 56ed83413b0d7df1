package dns

import (
	"context"
	"net"
	"strings"
)

// StdResolver implements Resolver using the standard library net package.
// Useful when custom nameserver selection is not required.
type StdResolver struct {
	resolver *net.Resolver
}

// NewStdResolver creates a resolver backed by net.DefaultResolver.
func NewStdResolver() *StdResolver {
	return &StdResolver{resolver: net.DefaultResolver}
}

// LookupMX retrieves the domain's MX records sorted by preference.
func (r *StdResolver) LookupMX(ctx context.Context, domain string) ([]MX, error) {
	domain = strings.TrimSuffix(domain, ".")

	mxs, err := r.resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, convertError(err)
	}
	if len(mxs) == 0 {
		return nil, ErrNotFound
	}

	records := make([]MX, 0, len(mxs))
	for _, mx := range mxs {
		records = append(records, MX{
			Host: strings.TrimSuffix(mx.Host, "."),
			Pref: mx.Pref,
		})
	}
	sortMX(records)
	return records, nil
}

// LookupIP retrieves A and AAAA records for a host.
func (r *StdResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	host = strings.TrimSuffix(host, ".")

	ips, err := r.resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, convertError(err)
	}
	if len(ips) == 0 {
		return nil, ErrNotFound
	}
	return ips, nil
}
