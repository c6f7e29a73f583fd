package netutil

import (
	neturl "net/url"
	"strings"
)

// NormalizeUpstreamBaseURL ensures the upstream API base URL has a scheme and
// no trailing slash, keeping any mount path (e.g. "/bot/api/v1").
func NormalizeUpstreamBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := neturl.Parse(s)
	if err != nil || u.Host == "" {
		return strings.TrimRight(s, "/")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
