package openrouter

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

// defaultAllowedHosts applies when OPENROUTER_ALLOWED_HOSTS is unset.
var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(raw string) string {
	if raw = strings.TrimSpace(raw); raw == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(raw, "/")
}

// ValidateBaseURL guards where the API key is sent: an absolute https URL
// (plain http only for loopback gateways), no credentials, query or
// fragment, and a host on the allow-list.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	raw := normalizeBaseURL(baseURL)
	bad := func(reason string) error {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: %s", raw, reason)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case !u.IsAbs() || host == "":
		return bad("absolute URL with host is required")
	case u.User != nil:
		return bad("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return bad("query and fragment are not allowed")
	}

	if !schemeAllowed(strings.ToLower(u.Scheme), host) {
		return bad("https is required for non-loopback hosts")
	}
	if _, ok := normalizeAllowedHosts(allowedHosts)[host]; !ok {
		return bad(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

func schemeAllowed(scheme, host string) bool {
	switch scheme {
	case "https":
		return true
	case "http":
		return isLoopback(host)
	}
	return false
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// normalizeAllowedHosts reduces entries like "https://Proxy:8443/" to bare
// lowercase hosts. Nothing usable falls back to the defaults.
func normalizeAllowedHosts(entries []string) map[string]struct{} {
	hosts := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		h := strings.ToLower(strings.TrimSpace(e))
		if i := strings.Index(h, "://"); i >= 0 {
			h = h[i+3:]
		}
		h = strings.Trim(h, "/")
		if bare, _, err := net.SplitHostPort(h); err == nil {
			h = bare
		}
		if h != "" {
			hosts[h] = struct{}{}
		}
	}
	if len(hosts) == 0 {
		return defaultAllowedHosts
	}
	return hosts
}
