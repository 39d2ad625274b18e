package airbnb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selector is one DOM lookup. Attr selects an attribute instead of the text;
// Innermost walks matches from the deepest (last in document order) outwards,
// which keeps :contains() selectors from returning the whole page wrapper.
type Selector struct {
	Name      string `yaml:"name"`
	CSS       string `yaml:"css"`
	Attr      string `yaml:"attr,omitempty"`
	Innermost bool   `yaml:"innermost,omitempty"`
}

// Strategies is the data-driven list of lookups per field and per harvesting
// method. A new markup variant is a new entry, not a new code path.
type Strategies struct {
	ListingPathMarker string `yaml:"listing_path_marker"`

	Title []Selector `yaml:"title"`
	Host  []Selector `yaml:"host"`

	// LicenseDedicated elements hold the code in their last span.
	LicenseDedicated []Selector `yaml:"license_dedicated"`
	// LicenseScopes are labelled containers tried before the body text.
	LicenseScopes []Selector `yaml:"license_scopes"`

	HarvestAnchors []Selector `yaml:"harvest_anchors"`
	HarvestMeta    []Selector `yaml:"harvest_meta"`
	// HarvestPatterns are regexps over raw markup; group 1 is the listing id.
	HarvestPatterns []string `yaml:"harvest_patterns"`

	HostJoined []Selector `yaml:"host_joined"`

	ListingWait string `yaml:"listing_wait"`
	SearchWait  string `yaml:"search_wait"`
}

// DefaultStrategies returns the built-in lookups for the current markup.
func DefaultStrategies() Strategies {
	return Strategies{
		ListingPathMarker: "/rooms/",
		Title: []Selector{
			{Name: "title-section", CSS: `[data-section-id="TITLE_DEFAULT"] h1`},
			{Name: "h1", CSS: "h1"},
			{Name: "og-title", CSS: `meta[property="og:title"]`, Attr: "content"},
		},
		Host: []Selector{
			{Name: "host-overview", CSS: `[data-section-id="HOST_OVERVIEW_DEFAULT"] a[href*="/users/show/"]`},
			{Name: "meet-host", CSS: `[data-section-id="MEET_YOUR_HOST"] a[href*="/users/show/"]`},
			{Name: "any-profile-link", CSS: `a[href*="/users/show/"]`},
			{Name: "profile-link-alt", CSS: `a[href*="/users/profile/"]`},
		},
		LicenseDedicated: []Selector{
			{Name: "permit-testid", CSS: `div[data-testid="listing-permit-license-number"]`},
		},
		LicenseScopes: []Selector{
			{Name: "permit-number", CSS: `div:contains("Permit number")`, Innermost: true},
			{Name: "dubai-permit", CSS: `div:contains("Dubai Tourism permit number")`, Innermost: true},
			{Name: "registration", CSS: `div:contains("Registration")`, Innermost: true},
			{Name: "license", CSS: `div:contains("License")`, Innermost: true},
			{Name: "licence", CSS: `div:contains("Licence")`, Innermost: true},
			{Name: "dtcm", CSS: `div:contains("DTCM")`, Innermost: true},
			{Name: "about-space", CSS: `section[aria-labelledby*="About this space"]`},
			{Name: "description", CSS: `div[data-section-id="DESCRIPTION_DEFAULT"]`},
		},
		HarvestAnchors: []Selector{
			{Name: "room-anchor", CSS: `a[href*="/rooms/"]`, Attr: "href"},
		},
		HarvestMeta: []Selector{
			{Name: "itemprop-url", CSS: `meta[itemprop="url"]`, Attr: "content"},
		},
		HarvestPatterns: []string{
			`/rooms/(\d{5,20})`,
		},
		HostJoined: []Selector{
			{Name: "joined-span", CSS: `span:contains("Joined")`, Innermost: true},
			{Name: "joined-div", CSS: `div:contains("Joined")`, Innermost: true},
		},
		ListingWait: "h1",
		SearchWait:  `a[href*="/rooms/"]`,
	}
}

// LoadStrategies overlays a YAML file onto the defaults. Non-empty lists in the
// file replace the corresponding default list.
func LoadStrategies(path string) (Strategies, error) {
	s := DefaultStrategies()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("strategies: read %q: %w", path, err)
	}

	var override Strategies
	if err := yaml.Unmarshal(data, &override); err != nil {
		return s, fmt.Errorf("strategies: parse %q: %w", path, err)
	}

	if override.ListingPathMarker != "" {
		s.ListingPathMarker = override.ListingPathMarker
	}
	replace(&s.Title, override.Title)
	replace(&s.Host, override.Host)
	replace(&s.LicenseDedicated, override.LicenseDedicated)
	replace(&s.LicenseScopes, override.LicenseScopes)
	replace(&s.HarvestAnchors, override.HarvestAnchors)
	replace(&s.HarvestMeta, override.HarvestMeta)
	replace(&s.HostJoined, override.HostJoined)
	if len(override.HarvestPatterns) > 0 {
		s.HarvestPatterns = override.HarvestPatterns
	}
	if override.ListingWait != "" {
		s.ListingWait = override.ListingWait
	}
	if override.SearchWait != "" {
		s.SearchWait = override.SearchWait
	}
	return s, nil
}

func replace(dst *[]Selector, src []Selector) {
	if len(src) > 0 {
		*dst = src
	}
}
