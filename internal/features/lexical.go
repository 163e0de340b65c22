package features

import (
	"math"
	"net/url"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
)

// SuspiciousKeywords are terms phishing URLs commonly borrow
var SuspiciousKeywords = []string{
	"login", "signin", "account", "verify", "update", "confirm",
	"secure", "banking", "paypal", "ebay", "amazon", "apple",
	"microsoft", "google", "password", "credential", "suspend",
}

// URLShorteners are known link shortening services
var URLShorteners = []string{
	"bit.ly", "goo.gl", "tinyurl.com", "t.co", "ow.ly",
	"buff.ly", "is.gd", "cli.gs", "tiny.cc",
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func urlLength(u core.NormalizedURL) float64 {
	return float64(len(u.Canonical))
}

func domainDots(u core.NormalizedURL) float64 {
	return float64(strings.Count(u.Host, "."))
}

func hyphenCount(u core.NormalizedURL) float64 {
	return float64(strings.Count(u.Canonical, "-"))
}

func pathDepth(u core.NormalizedURL) float64 {
	depth := 0
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			depth++
		}
	}
	return float64(depth)
}

func queryParamCount(u core.NormalizedURL) float64 {
	if u.RawQuery == "" {
		return 0
	}
	// Malformed pairs are skipped; the parsed ones still count
	values, _ := url.ParseQuery(u.RawQuery)
	return float64(len(values))
}

func digitRatio(u core.NormalizedURL) float64 {
	if len(u.Canonical) == 0 {
		return 0
	}
	digits := 0
	for i := 0; i < len(u.Canonical); i++ {
		if u.Canonical[i] >= '0' && u.Canonical[i] <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(u.Canonical))
}

func hasIPAddress(u core.NormalizedURL) float64 {
	return boolFeature(u.IsIP())
}

// shannonEntropy returns the entropy of s in bits per byte
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func charEntropy(u core.NormalizedURL) float64 {
	return shannonEntropy(u.Host)
}

func suspiciousKeywords(u core.NormalizedURL) float64 {
	folded := cases.Fold().String(u.Canonical)
	count := 0
	for _, keyword := range SuspiciousKeywords {
		if strings.Contains(folded, keyword) {
			count++
		}
	}
	return float64(count)
}

func isShortened(u core.NormalizedURL) float64 {
	for _, shortener := range URLShorteners {
		if u.Host == shortener || strings.HasSuffix(u.Host, "."+shortener) {
			return 1
		}
	}
	return 0
}

func hasHTTPS(u core.NormalizedURL) float64 {
	return boolFeature(u.Scheme == "https")
}

// subdomainCount counts the labels in front of the registrable domain
func subdomainCount(u core.NormalizedURL) float64 {
	if u.IsIP() {
		return 0
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Host)
	if err != nil || len(domain) >= len(u.Host) {
		return 0
	}
	prefix := strings.TrimSuffix(u.Host[:len(u.Host)-len(domain)], ".")
	return float64(strings.Count(prefix, ".") + 1)
}

func hasAtSymbol(u core.NormalizedURL) float64 {
	return boolFeature(strings.Contains(u.Canonical, "@"))
}

func isPunycode(u core.NormalizedURL) float64 {
	for _, label := range strings.Split(u.Host, ".") {
		if strings.HasPrefix(label, "xn--") {
			return 1
		}
	}
	return 0
}
