// Package netguard decides whether an upstream URL points back at the host
// running the router, and whether the process runs on a shared cloud platform
// where such URLs must never be dialed.
package netguard

import (
	"net/netip"
	"net/url"
	"os"
	"strings"
)

// Classifier reports whether a URL targets a loopback-like address.
type Classifier interface {
	IsLoopback(rawURL string) bool
}

var loopbackMarkers = []string{"localhost", "127.0.0.1", "0.0.0.0"}

// HostMatch flags a URL when its host contains one of the loopback markers.
// Matching is case-insensitive and never resolves DNS. A URL that does not
// parse is matched on its raw text.
type HostMatch struct{}

func (HostMatch) IsLoopback(rawURL string) bool {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)
	for _, marker := range loopbackMarkers {
		if strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

// Strict parses the host and flags localhost names plus literal IPs that are
// loopback, private, unspecified or link-local.
type Strict struct{}

func (Strict) IsLoopback(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return HostMatch{}.IsLoopback(rawURL)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast()
}

// NewClassifier maps a config name to a Classifier. Unknown names fall back to HostMatch.
func NewClassifier(name string) Classifier {
	if strings.EqualFold(name, "strict") {
		return Strict{}
	}
	return HostMatch{}
}

// DefaultCloudIndicators are environment variables set by common PaaS runtimes.
var DefaultCloudIndicators = []string{"RENDER", "DYNO", "VERCEL", "RAILWAY_ENVIRONMENT"}

const (
	ModeAuto  = "auto"
	ModeCloud = "cloud"
	ModeLocal = "local"
)

// CloudDetector reports whether the process runs in a shared cloud context.
// The environment is read on every call.
type CloudDetector struct {
	Indicators []string
	Mode       string
	lookup     func(string) (string, bool)
}

func NewCloudDetector(indicators []string, mode string) *CloudDetector {
	if len(indicators) == 0 {
		indicators = DefaultCloudIndicators
	}
	return &CloudDetector{Indicators: indicators, Mode: strings.ToLower(mode), lookup: os.LookupEnv}
}

func (d *CloudDetector) IsCloud() bool {
	switch d.Mode {
	case ModeCloud:
		return true
	case ModeLocal:
		return false
	}

	lookup := d.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range d.Indicators {
		if _, ok := lookup(name); ok {
			return true
		}
	}
	return false
}
