package backend

import "strings"

const (
	// Scheme is prefixed to hosts that do not carry a scheme of their own.
	Scheme = "mongodb://"

	// SRVScheme is the DNS seed list form, accepted as already normalized.
	SRVScheme = "mongodb+srv://"
)

// NormalizeURL turns a bare host into a connection URL.
// "db.example.com" becomes "mongodb://db.example.com"; a host that already
// starts with mongodb:// or mongodb+srv:// is returned as is.
func NormalizeURL(host string) string {
	host = strings.TrimSpace(host)
	if strings.HasPrefix(host, Scheme) || strings.HasPrefix(host, SRVScheme) {
		return host
	}
	return Scheme + host
}

// RedactURL replaces the password in the URL userinfo with "xxxxx".
// A bare host ("user:pass@host") is redacted the same way. Multi-host seed
// lists are not valid net/url input, so the userinfo is located by hand.
func RedactURL(rawURL string) string {
	prefixLen := 0
	if schemeEnd := strings.Index(rawURL, "://"); schemeEnd >= 0 {
		prefixLen = schemeEnd + 3
	}
	rest := rawURL[prefixLen:]

	authority := rest
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority = rest[:i]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return rawURL
	}

	userinfo := authority[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return rawURL
	}

	return rawURL[:prefixLen] + userinfo[:colon] + ":xxxxx" + rest[at:]
}
