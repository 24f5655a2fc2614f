// File: filter/allowlist.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/momentics/hioload-aio/api"
)

// AllowList accepts connections whose remote IP falls inside one of its
// prefixes. An empty list refuses everything.
type AllowList struct {
	Base
	prefixes []netip.Prefix
}

// NewAllowList parses CIDRs ("10.0.0.0/8") or bare addresses ("127.0.0.1").
func NewAllowList(entries ...string) (*AllowList, error) {
	al := &AllowList{prefixes: make([]netip.Prefix, 0, len(entries))}
	for _, e := range entries {
		p, err := netip.ParsePrefix(e)
		if err != nil {
			addr, aerr := netip.ParseAddr(e)
			if aerr != nil {
				return nil, fmt.Errorf("filter: allow-list entry %q: %w", e, api.ErrInvalidArgument)
			}
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		al.prefixes = append(al.prefixes, p.Masked())
	}
	return al, nil
}

// ShouldAccept matches the remote host of conn against the prefixes.
func (al *AllowList) ShouldAccept(conn net.Conn) bool {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range al.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
