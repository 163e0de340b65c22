package sources

import (
	"github.com/mikey/url-verdict/internal/core"
	"golang.org/x/net/publicsuffix"
)

// DefaultKeyFunc returns the lookup key derivation for a source kind
func DefaultKeyFunc(kind core.SourceKind) KeyFunc {
	switch kind {
	case core.SourceRegistration:
		return RegistrableDomain
	case core.SourceDNS, core.SourceGeolocation:
		return HostKey
	default:
		return CanonicalKey
	}
}

// HostKey keys by bare host
func HostKey(u core.NormalizedURL) string {
	return u.Host
}

// CanonicalKey keys by the full canonical URL
func CanonicalKey(u core.NormalizedURL) string {
	return u.Canonical
}

// RegistrableDomain keys by eTLD+1. IP hosts and hosts that are themselves a
// public suffix are returned unchanged.
func RegistrableDomain(u core.NormalizedURL) string {
	if u.IsIP() {
		return u.Host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Host)
	if err != nil {
		return u.Host
	}
	return domain
}
