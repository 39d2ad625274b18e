package airbnb

import (
	"net/url"
	"testing"
)

func newTestCanon(t *testing.T) *Canonicalizer {
	t.Helper()
	c, err := NewCanonicalizer("https://www.airbnb.com", "/rooms/")
	if err != nil {
		t.Fatalf("NewCanonicalizer: %v", err)
	}
	return c
}

func TestCanonicalizeListing(t *testing.T) {
	c := newTestCanon(t)

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{"absolute with query", "https://www.airbnb.com/rooms/123?x=1", "https://www.airbnb.com/rooms/123", true},
		{"relative with query", "/rooms/123?y=2", "https://www.airbnb.com/rooms/123", true},
		{"fragment and slash", "/rooms/123/#photos", "https://www.airbnb.com/rooms/123", true},
		{"upper-case host", "HTTPS://WWW.AIRBNB.COM/rooms/55", "https://www.airbnb.com/rooms/55", true},
		{"regional domain", "https://www.airbnb.ae/rooms/123?locale=ar", "https://www.airbnb.com/rooms/123", true},
		{"regional second-level suffix", "https://fr.airbnb.co.uk/rooms/77", "https://www.airbnb.com/rooms/77", true},
		{"plain http", "http://www.airbnb.com/rooms/5", "https://www.airbnb.com/rooms/5", true},
		{"other site", "https://evil.example/rooms/123", "", false},
		{"lookalike domain", "https://airbnb-deals.com/rooms/123", "", false},
		{"plus listing", "/rooms/plus/987", "https://www.airbnb.com/rooms/plus/987", true},
		{"sub page is not a listing", "/rooms/123/photos", "", false},
		{"non numeric id", "/rooms/abc", "", false},
		{"other path", "/users/show/1", "", false},
		{"javascript", "javascript:void(0)", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Listing(tt.href)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Listing(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCanonicalizeSameListingSameKey(t *testing.T) {
	c := newTestCanon(t)
	a, _ := c.Listing("https://www.airbnb.com/rooms/123?x=1")
	b, _ := c.Listing("/rooms/123?y=2")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestCanonicalizeRegionalAndIDSameKey(t *testing.T) {
	c := newTestCanon(t)
	a, _ := c.Listing("https://www.airbnb.ae/rooms/123")
	b, _ := c.FromID("123")
	if a != b || a == "" {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestResolveProfile(t *testing.T) {
	c := newTestCanon(t)
	got, ok := c.Resolve("/users/show/42?source=listing")
	if !ok || got != "https://www.airbnb.com/users/show/42" {
		t.Errorf("Resolve = %q, %v", got, ok)
	}
}

func TestPageURL(t *testing.T) {
	got, err := PageURL("https://www.airbnb.com/s/Dubai/homes?adults=2&items_offset=5", 36)
	if err != nil {
		t.Fatalf("PageURL: %v", err)
	}
	u, _ := url.Parse(got)
	q := u.Query()
	if q.Get("items_offset") != "36" || q.Get("section_offset") != "0" || q.Get("adults") != "2" {
		t.Errorf("PageURL query = %v", q)
	}
	if u.Path != "/s/Dubai/homes" {
		t.Errorf("PageURL path = %q", u.Path)
	}
}
