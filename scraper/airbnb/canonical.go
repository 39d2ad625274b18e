package airbnb

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var listingIDRe = regexp.MustCompile(`^(?:plus/)?\d+$`)

// Canonicalizer turns raw hrefs into listing keys: absolute, lower-case
// scheme and host, no query, no fragment, no trailing slash. Links to a
// regional domain of the same site (www.airbnb.ae for www.airbnb.com) are
// moved onto the origin; links to any other site are rejected.
type Canonicalizer struct {
	origin *url.URL
	brand  string
	marker string
}

// NewCanonicalizer builds a Canonicalizer for the site origin. marker is the
// path prefix that identifies a listing page, e.g. "/rooms/".
func NewCanonicalizer(origin, marker string) (*Canonicalizer, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, err
	}
	u.Path, u.RawQuery, u.Fragment = "", "", ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if marker == "" {
		marker = "/rooms/"
	}
	return &Canonicalizer{origin: u, brand: siteBrand(u.Hostname()), marker: marker}, nil
}

// siteBrand returns the registrable label of host without its public
// suffix: "airbnb" for both www.airbnb.com and fr.airbnb.co.uk.
func siteBrand(host string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	return strings.TrimSuffix(etld1, "."+suffix)
}

func (c *Canonicalizer) sameSite(u *url.URL) bool {
	if strings.EqualFold(u.Host, c.origin.Host) {
		return true
	}
	return c.brand != "" && siteBrand(strings.ToLower(u.Hostname())) == c.brand
}

// Origin returns the normalised site origin.
func (c *Canonicalizer) Origin() string {
	return c.origin.Scheme + "://" + c.origin.Host
}

// Resolve makes href absolute against the origin and strips query and
// fragment. It does not check the path. Off-site links are rejected.
func (c *Canonicalizer) Resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := c.origin.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !c.sameSite(u) {
		return "", false
	}
	u.Scheme, u.Host = c.origin.Scheme, c.origin.Host
	u.RawQuery, u.Fragment, u.RawFragment, u.ForceQuery = "", "", "", false
	u.User = nil
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), true
}

// Listing canonicalizes href and reports whether it is a listing page.
func (c *Canonicalizer) Listing(href string) (string, bool) {
	abs, ok := c.Resolve(href)
	if !ok {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return "", false
	}
	idx := strings.Index(u.Path, c.marker)
	if idx < 0 {
		return "", false
	}
	if !listingIDRe.MatchString(u.Path[idx+len(c.marker):]) {
		return "", false
	}
	return abs, true
}

// FromID builds the canonical listing URL for a bare listing id.
func (c *Canonicalizer) FromID(id string) (string, bool) {
	return c.Listing(c.marker + id)
}

// PageURL returns the search URL positioned at offset. Other query parameters
// are preserved.
func PageURL(searchURL string, offset int) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("items_offset", strconv.Itoa(offset))
	q.Set("section_offset", "0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
