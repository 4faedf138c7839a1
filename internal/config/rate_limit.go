package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

type RateLimitConfig struct {
	// PerMinute is the number of /api requests a client IP may make per window. Zero disables limiting.
	PerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	Burst     int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	Window    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means the header is ignored and the connection address is used.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func (c RateLimitConfig) Enabled() bool {
	return c.PerMinute > 0
}

// Proxies parses TrustedProxies. A bare address becomes a single-host prefix.
func (c RateLimitConfig) Proxies() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
