package core

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var duplicateSlashes = regexp.MustCompile(`/{2,}`)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize canonicalizes a raw URL string. The transformations applied are,
// in order: trim surrounding whitespace, lowercase scheme and host, convert an
// internationalized host to its ASCII (punycode) form, strip trailing dots
// from the host, strip the default port (80 for http, 443 for https), collapse
// repeated slashes in the path, use "/" for an empty path and drop the
// fragment. An IPv6 zone is written back escaped. Userinfo and the query
// string are kept verbatim, including parameter order.
func Normalize(raw string) (NormalizedURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NormalizedURL{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return NormalizedURL{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		if scheme == "" {
			return NormalizedURL{}, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
		}
		return NormalizedURL{}, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, scheme)
	}

	host, err := canonicalHost(u.Hostname())
	if err != nil {
		return NormalizedURL{}, err
	}

	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}

	path := duplicateSlashes.ReplaceAllString(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	if strings.Contains(host, ":") {
		b.WriteString("[" + strings.Replace(host, "%", "%25", 1) + "]")
	} else {
		b.WriteString(host)
	}
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	return NormalizedURL{
		Original:  raw,
		Scheme:    scheme,
		Host:      host,
		Port:      port,
		Path:      path,
		RawQuery:  u.RawQuery,
		Canonical: b.String(),
	}, nil
}

func canonicalHost(host string) (string, error) {
	host = strings.TrimRight(strings.ToLower(host), ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if isIPHost(host) {
		return host, nil
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: host %q: %v", ErrInvalidURL, host, err)
		}
		host = strings.ToLower(ascii)
	}
	return host, nil
}

func isIPHost(host string) bool {
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	return net.ParseIP(host) != nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
