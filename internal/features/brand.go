package features

import (
	"maps"
	"slices"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"golang.org/x/net/publicsuffix"
)

// BrandDomains maps commonly impersonated brands to the domains they own
var BrandDomains = map[string][]string{
	"google":        {"google.com", "gmail.com", "google.co.uk", "google.de", "google.fr", "google.it", "google.es", "google.ca", "google.com.au", "google.co.in", "google.co.jp", "google.com.br"},
	"microsoft":     {"microsoft.com", "office.com", "live.com", "azure.com", "outlook.com", "hotmail.com", "windows.com"},
	"apple":         {"apple.com", "icloud.com", "itunes.com"},
	"amazon":        {"amazon.com", "amazon.co.uk", "amazon.de", "amazon.fr", "amazon.it", "amazon.es", "amazon.ca", "amazon.in", "amazon.co.jp", "amazon.com.br", "amazon.com.mx", "amazon.com.au"},
	"paypal":        {"paypal.com", "paypal.me"},
	"netflix":       {"netflix.com"},
	"facebook":      {"facebook.com", "fb.com", "messenger.com"},
	"instagram":     {"instagram.com"},
	"linkedin":      {"linkedin.com"},
	"twitter":       {"twitter.com", "x.com", "t.co"},
	"dropbox":       {"dropbox.com"},
	"adobe":         {"adobe.com"},
	"chase":         {"chase.com"},
	"wellsfargo":    {"wellsfargo.com"},
	"bankofamerica": {"bankofamerica.com"},
	"ebay":          {"ebay.com", "ebay.co.uk", "ebay.de"},
}

var brandOrder = slices.Sorted(maps.Keys(BrandDomains))

// Labels shorter than this are too noisy for edit distance matching
const minTyposquatLabel = 5

const maxTyposquatDistance = 2

// ImpersonatedBrand returns the brand a host appears to imitate, or "" when
// none does. A host imitates a brand when it carries the brand name without
// being one of the brand's domains, or when its registrable label sits within
// a small edit distance of a brand domain label. Allowlisted hosts never
// reach the assembler, so they are not checked here.
func ImpersonatedBrand(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" || isOwnedByBrand(host) {
		return ""
	}

	for _, brand := range brandOrder {
		if strings.Contains(host, brand) {
			return brand
		}
	}

	label := registrableLabel(host)
	if len(label) < minTyposquatLabel {
		return ""
	}
	for _, brand := range brandOrder {
		for _, domain := range BrandDomains[brand] {
			dist := levenshtein(label, registrableLabel(domain))
			if dist > 0 && dist <= maxTyposquatDistance {
				return brand
			}
		}
	}
	return ""
}

func isOwnedByBrand(host string) bool {
	for _, domains := range BrandDomains {
		for _, domain := range domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}
	return false
}

// registrableLabel returns the leftmost label of the registrable domain,
// e.g. "paypal" for "login.paypal.co.uk"
func registrableLabel(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}
	label, _, _ := strings.Cut(domain, ".")
	return label
}

// levenshtein computes the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func impersonatesBrand(u core.NormalizedURL) float64 {
	if u.IsIP() {
		return 0
	}
	return boolFeature(ImpersonatedBrand(u.Host) != "")
}
