// Package webref fetches a user-supplied reference URL (datasheet page, app
// note) and converts its readable content to Markdown for inclusion in the
// ensemble prompt. Fetching is SSRF-safe: private addresses and rebinding
// tricks are rejected.
package webref

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Pre-compiled CIDR networks for private/reserved IP ranges.
var (
	cgnat    *net.IPNet // 100.64.0.0/10 - Carrier-grade NAT
	v6unique *net.IPNet // fc00::/7 - IPv6 unique local
	v6link   *net.IPNet // fe80::/10 - IPv6 link-local
)

func init() {
	var err error

	if _, cgnat, err = net.ParseCIDR("100.64.0.0/10"); err != nil {
		panic(fmt.Sprintf("parse CGNAT CIDR: %v", err))
	}
	if _, v6unique, err = net.ParseCIDR("fc00::/7"); err != nil {
		panic(fmt.Sprintf("parse IPv6 unique local CIDR: %v", err))
	}
	if _, v6link, err = net.ParseCIDR("fe80::/10"); err != nil {
		panic(fmt.Sprintf("parse IPv6 link-local CIDR: %v", err))
	}
}

// ValidateURL checks that a reference URL is safe to fetch: HTTPS only, no
// localhost variants, no local domains, no literal private IPs.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("only https URLs are allowed, got %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	switch host {
	case "localhost", "127.0.0.1", "::1":
		return fmt.Errorf("localhost URLs are not allowed")
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("local domain %q is not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return fmt.Errorf("private IP %s is not allowed", ip)
	}

	return nil
}

// IsPrivateIP reports whether an IP belongs to a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	return cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip)
}
