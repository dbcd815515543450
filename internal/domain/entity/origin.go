package entity

import (
	"net/url"
	"strings"
)

// IsSameOrigin reports whether rawURL points at the annotation service host. serviceHost may be a
// full URL or a bare host[:port]. A bare host without a port matches that host on any scheme and
// port; otherwise ports are compared, with the scheme default filled in when absent.
func IsSameOrigin(rawURL, serviceHost string) bool {
	target, ok := parseOrigin(rawURL)
	if !ok {
		return false
	}
	service, ok := parseOrigin(serviceHost)
	if !ok {
		return false
	}
	if target.host != service.host {
		return false
	}
	if !service.hasScheme && service.port == "" {
		return true
	}
	return target.effectivePort() == service.effectivePort()
}

type origin struct {
	host       string
	port       string
	hasScheme  bool
	schemeName string
}

func (o origin) effectivePort() string {
	if o.port != "" {
		return o.port
	}
	if o.schemeName == "https" {
		return "443"
	}
	return "80"
}

func parseOrigin(raw string) (origin, bool) {
	if raw == "" {
		return origin{}, false
	}
	hasScheme := strings.Contains(raw, "://")
	if !hasScheme {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return origin{}, false
	}
	return origin{
		host:       strings.ToLower(u.Hostname()),
		port:       u.Port(),
		hasScheme:  hasScheme,
		schemeName: strings.ToLower(u.Scheme),
	}, true
}
