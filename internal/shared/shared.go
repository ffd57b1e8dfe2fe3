package shared

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shopspring/decimal"
)

// RateExample renders a rate the way the UI shows it, e.g. "1 LBC = $0.0035 USDC".
func RateExample(rate decimal.Decimal) string {
	return fmt.Sprintf("1 LBC = $%s USDC", rate.String())
}

// ClientIPResolver determines the address a request originates from.
// X-Forwarded-For is only honoured when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxy entries, each an IP or a CIDR range.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	const op = "shared.NewClientIPResolver"

	resolver := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			resolver.trusted = append(resolver.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		addr = addr.Unmap()
		resolver.trusted = append(resolver.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return resolver, nil
}

// ClientIP returns the peer address, or when the peer is a trusted proxy the nearest
// untrusted X-Forwarded-For hop.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !c.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
