package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// ResolverConfig contains configuration for the MX resolver.
type ResolverConfig struct {
	// Nameservers is a list of DNS servers to query (e.g. "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used, falling
	// back to public DNS.
	Nameservers []string

	// Timeout bounds individual queries. Default is 5 seconds.
	Timeout time.Duration

	// Retries is the number of retries for failed queries. Default is 2.
	Retries int
}

// MXResolver implements Resolver using github.com/miekg/dns, giving control
// over nameserver selection and query behavior that the stdlib resolver
// does not expose.
type MXResolver struct {
	config ResolverConfig
	client *mdns.Client
}

// NewResolver creates an MXResolver.
func NewResolver(config ResolverConfig) *MXResolver {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 2
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = systemNameservers()
	}
	return &MXResolver{
		config: config,
		client: &mdns.Client{Timeout: config.Timeout},
	}
}

// systemNameservers reads resolv.conf, falling back to public DNS.
func systemNameservers() []string {
	config, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		servers = append(servers, s)
	}
	return servers
}

// query performs one DNS query with retries across nameservers.
func (r *MXResolver) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	m.RecursionDesired = true

	var lastErr error
	for i := 0; i <= r.config.Retries; i++ {
		for _, server := range r.config.Nameservers {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = fmt.Errorf("dns query failed: %w", err)
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError: // NXDOMAIN
				return nil, ErrNotFound
			case mdns.RcodeServerFailure:
				lastErr = ErrServFail
				continue
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %d", resp.Rcode)
				continue
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrServFail
}

// LookupMX retrieves the domain's MX records sorted by preference.
func (r *MXResolver) LookupMX(ctx context.Context, domain string) ([]MX, error) {
	resp, err := r.query(ctx, domain, mdns.TypeMX)
	if err != nil {
		return nil, err
	}

	var records []MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			records = append(records, MX{
				Host: strings.TrimSuffix(mx.Mx, "."),
				Pref: mx.Preference,
			})
		}
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	sortMX(records)
	return records, nil
}

// LookupIP retrieves A and AAAA records for a host.
func (r *MXResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	var ips []net.IP
	var lastErr error

	for _, qtype := range []uint16{mdns.TypeA, mdns.TypeAAAA} {
		resp, err := r.query(ctx, host, qtype)
		if err != nil {
			if err != ErrNotFound {
				lastErr = err
			}
			continue
		}
		for _, rr := range resp.Answer {
			switch a := rr.(type) {
			case *mdns.A:
				ips = append(ips, a.A)
			case *mdns.AAAA:
				ips = append(ips, a.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNotFound
	}
	return ips, nil
}
