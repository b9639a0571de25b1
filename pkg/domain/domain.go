// Package domain classifies hostnames against the public suffix list.
package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DefaultDomain is the placeholder domain Tutor ships with.
const DefaultDomain = "overhang.io"

// ErrUnparsable is returned when a hostname cannot be matched against the public suffix list.
var ErrUnparsable = errors.New("hostname cannot be parsed against the public suffix list")

// Hostname is a host split into its public-suffix components.
// For "two.one.example.co.uk": Subdomain "two.one", Domain "example", Suffix "co.uk".
type Hostname struct {
	Subdomain string
	Domain    string
	Suffix    string
}

// Parse splits host into subdomain, domain and public suffix.
// A URL scheme, port and trailing dot are tolerated and stripped.
func Parse(host string) (Hostname, error) {
	name, err := normalize(host)
	if err != nil {
		return Hostname{}, err
	}

	suffix, icann := publicsuffix.PublicSuffix(name)
	// Unknown TLDs fall through to the "*" rule: not ICANN and a single label.
	if !icann && !strings.Contains(suffix, ".") {
		return Hostname{}, fmt.Errorf("%w: %q has no known public suffix", ErrUnparsable, host)
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return Hostname{}, fmt.Errorf("%w: %q: %v", ErrUnparsable, host, err)
	}

	h := Hostname{
		Domain: strings.TrimSuffix(registrable, "."+suffix),
		Suffix: suffix,
	}
	if name != registrable {
		h.Subdomain = strings.TrimSuffix(name, "."+registrable)
	}
	return h, nil
}

func normalize(host string) (string, error) {
	name := strings.TrimSpace(host)
	if strings.Contains(name, "://") {
		u, err := url.Parse(name)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrUnparsable, host, err)
		}
		name = u.Host
	}
	if h, _, err := net.SplitHostPort(name); err == nil {
		name = h
	}
	name = strings.ToLower(strings.TrimSuffix(name, "."))

	if name == "" {
		return "", fmt.Errorf("%w: empty hostname", ErrUnparsable)
	}
	if net.ParseIP(name) != nil {
		return "", fmt.Errorf("%w: %q is an IP address", ErrUnparsable, host)
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || strings.ContainsAny(label, " \t/\\@:") {
			return "", fmt.Errorf("%w: %q has an invalid label", ErrUnparsable, host)
		}
	}
	return name, nil
}

// Registrable returns "<domain>.<suffix>".
func (h Hostname) Registrable() string {
	return h.Domain + "." + h.Suffix
}

// Depth is the number of subdomain labels.
func (h Hostname) Depth() int {
	if h.Subdomain == "" {
		return 0
	}
	return strings.Count(h.Subdomain, ".") + 1
}

// String reassembles the full hostname.
func (h Hostname) String() string {
	if h.Subdomain == "" {
		return h.Registrable()
	}
	return h.Subdomain + "." + h.Registrable()
}

// RegistrableDomain returns the first-level domain of host,
// e.g. "one.two.example.com" -> "example.com".
func RegistrableDomain(host string) (string, error) {
	h, err := Parse(host)
	if err != nil {
		return "", err
	}
	return h.Registrable(), nil
}

// SubdomainDepthOK reports whether host has at most one subdomain label.
func SubdomainDepthOK(host string) (bool, error) {
	h, err := Parse(host)
	if err != nil {
		return false, err
	}
	return h.Depth() <= 1, nil
}

// CollapseToOneSubdomain keeps only the outermost subdomain label:
// "two.one.example.com" -> "two.example.com". Hosts with one or no
// subdomain label are returned unchanged.
func CollapseToOneSubdomain(host string) (string, error) {
	h, err := Parse(host)
	if err != nil {
		return "", err
	}
	if h.Depth() <= 1 {
		return host, nil
	}
	outer, _, _ := strings.Cut(h.Subdomain, ".")
	return outer + "." + h.Registrable(), nil
}

// IsSameDomain reports whether all hosts share exactly one registrable domain.
// A set holding an unparsable host never shares a domain.
func IsSameDomain(hosts []string) bool {
	domains := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		d, err := RegistrableDomain(host)
		if err != nil {
			return false
		}
		domains[d] = struct{}{}
	}
	return len(domains) == 1
}

// ConflictedHosts returns the entries of hosts whose registrable domain differs from root.
func ConflictedHosts(hosts map[string]string, root string) map[string]string {
	conflicts := make(map[string]string)
	for key, host := range hosts {
		d, err := RegistrableDomain(host)
		if err != nil || d != root {
			conflicts[key] = host
		}
	}
	return conflicts
}

// IsDefaultDomain reports whether host belongs to Tutor's placeholder domain.
func IsDefaultDomain(host string) bool {
	d, err := RegistrableDomain(host)
	return err == nil && d == DefaultDomain
}

// SuggestHost moves the first label of host under root:
// ("lms.other.org", "example.com") -> "lms.example.com".
func SuggestHost(host, root string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(host), ".")
	if first == "" {
		return root
	}
	return first + "." + root
}
