package httpserver

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"
	"github.com/mssola/user_agent"

	"github.com/Skotchmaster/notes_auth/internal/service"
)

// clientMeta reads the caller's IP and device from the request.
func clientMeta(c echo.Context) service.ClientMeta {
	meta := service.ClientMeta{IP: c.RealIP()}

	raw := c.Request().UserAgent()
	if raw == "" {
		return meta
	}
	ua := user_agent.New(raw)
	browser, _ := ua.Browser()

	meta.OS = ua.OS()
	meta.Platform = ua.Platform()
	meta.Browser = browser
	return meta
}

// IPExtractor decides where RealIP comes from. Without trusted proxies only
// the peer address counts; with them X-Forwarded-For is honoured for hops
// inside the listed CIDRs.
func IPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := make([]echo.TrustOption, 0, len(trustedProxies))
	for _, cidr := range trustedProxies {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
