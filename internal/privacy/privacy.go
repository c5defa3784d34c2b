// Package privacy removes credentials, identifiers and positions from text
// that leaves the device, such as error telemetry and log fields.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlQueryRegex  = regexp.MustCompile(`((?:https?|tcp|ssl|mqtts?|wss?)://[^?\s]+)\?\S*`)
	credentialRegs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)api[_-]?key[=:]\S+`),
		regexp.MustCompile(`(?i)token[=:]\S+`),
		regexp.MustCompile(`(?i)password[=:]\S+`),
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
		regexp.MustCompile(`(?i)://[^/\s:@]+:[^/\s@]+@`),
	}
	identifierRegs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)vehicle[_-]?id[=:]\s*\S+`),
		regexp.MustCompile(`(?i)driver[_-]?id[=:]\s*\S+`),
	}
	coordinateRegex = regexp.MustCompile(`(?i)(latitude|longitude|lat|lon)[=:]\s*-?\d+(\.\d+)?`)
)

// ScrubMessage redacts URL query strings, credentials, vehicle and driver
// identifiers and coordinates from message.
func ScrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	for _, re := range credentialRegs {
		scrubbed = re.ReplaceAllString(scrubbed, "[CREDENTIAL_REDACTED]")
	}
	for _, re := range identifierRegs {
		scrubbed = re.ReplaceAllString(scrubbed, "[ID_REDACTED]")
	}
	return coordinateRegex.ReplaceAllString(scrubbed, "$1=[REDACTED]")
}

// SanitizeURL returns rawURL without user info, query or fragment, for logs.
// Unparseable input is replaced by its anonymized form.
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return AnonymizeURL(rawURL)
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// AnonymizeURL maps rawURL to a stable opaque token. The scheme, host class
// and port feed the hash so equal endpoints still group together.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		hash := sha256.Sum256([]byte(path))
		parts = append(parts, fmt.Sprintf("path-%x", hash[:4]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// categorizeHost reduces a host to localhost, private-ip, public-ip or its TLD
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}
