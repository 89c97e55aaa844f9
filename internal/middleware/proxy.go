package middleware

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"
)

// DefaultTrustedProxies covers localhost and the private ranges Docker and
// common LAN reverse proxies use.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fd00::/8",
}

// TrustedProxies makes c.RealIP() honour X-Forwarded-For only when the
// direct peer falls inside one of the given CIDRs. Echo's built-in trust
// defaults (loopback, link-local, private nets) are switched off so the
// list is the single source of truth.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) error {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("parsing trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(network))
	}

	e.IPExtractor = echo.ExtractIPFromXFFHeader(opts...)
	return nil
}
