package talon

import (
	"sort"
	"strconv"
	"strings"
)

// CapabilitySet maps extension keywords advertised in an EHLO reply to their
// parameters. It exists only after a successful Hello; a HELO fallback
// produces a degenerate set holding only the server's self-reported name.
// The set is cleared on reconnect, re-Hello, and TLS activation (RFC 3207:
// pre-TLS capabilities are stale).
type CapabilitySet struct {
	source     string // "EHLO" or "HELO", the reserved self-name key
	serverName string // server's self-reported name from the first reply line
	exts       map[Extension][]string
}

// parseCapabilities builds a CapabilitySet from the lines of a successful
// EHLO reply. The first line carries the server's self-reported name; every
// following line is `keyword[ params...]` with the keyword uppercased on
// storage. A keyword without parameters is stored as a bare flag.
func parseCapabilities(verb string, lines []string) *CapabilitySet {
	cs := &CapabilitySet{
		source: verb,
		exts:   make(map[Extension][]string),
	}
	if len(lines) > 0 {
		cs.serverName = lines[0]
	}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keyword := Extension(strings.ToUpper(fields[0]))
		if len(fields) > 1 {
			cs.exts[keyword] = fields[1:]
		} else {
			cs.exts[keyword] = nil
		}
	}
	return cs
}

// Source returns which of EHLO or HELO populated the set.
func (cs *CapabilitySet) Source() string {
	return cs.source
}

// ServerName returns the server's self-reported name, stored under the
// reserved Source key.
func (cs *CapabilitySet) ServerName() string {
	return cs.serverName
}

// Has reports whether the server advertised the extension. Lookup is
// case-insensitive.
func (cs *CapabilitySet) Has(ext Extension) bool {
	if cs == nil {
		return false
	}
	_, ok := cs.exts[Extension(strings.ToUpper(string(ext)))]
	return ok
}

// Params returns the advertised parameters for an extension. A nil slice
// with ok=true means the extension was advertised as a bare flag.
func (cs *CapabilitySet) Params(ext Extension) (params []string, ok bool) {
	if cs == nil {
		return nil, false
	}
	params, ok = cs.exts[Extension(strings.ToUpper(string(ext)))]
	return params, ok
}

// AuthMechanisms returns the SASL mechanisms listed in the AUTH capability.
func (cs *CapabilitySet) AuthMechanisms() []string {
	params, _ := cs.Params(ExtAuth)
	mechs := make([]string, len(params))
	for i, m := range params {
		mechs[i] = strings.ToUpper(m)
	}
	return mechs
}

// SupportsAuth reports whether a specific SASL mechanism is advertised.
func (cs *CapabilitySet) SupportsAuth(mechanism string) bool {
	mechanism = strings.ToUpper(mechanism)
	for _, m := range cs.AuthMechanisms() {
		if m == mechanism {
			return true
		}
	}
	return false
}

// MaxSize returns the advertised SIZE limit, or 0 when absent or unlimited.
func (cs *CapabilitySet) MaxSize() int64 {
	params, ok := cs.Params(ExtSize)
	if !ok || len(params) == 0 {
		return 0
	}
	size, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return 0
	}
	return size
}

// Keywords returns the advertised extension keywords in sorted order.
func (cs *CapabilitySet) Keywords() []Extension {
	if cs == nil {
		return nil
	}
	keys := make([]Extension, 0, len(cs.exts))
	for k := range cs.exts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
