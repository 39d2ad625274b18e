package models

import "testing"

func TestRowFollowsHeader(t *testing.T) {
	rec := ListingRecord{
		URL:              "u",
		Title:            "t",
		LicenseCode:      "l",
		HostName:         "hn",
		HostProfileURL:   "hp",
		HostRating:       "hr",
		HostListingCount: "hc",
		HostJoinedDate:   "hj",
	}

	row := rec.Row()
	if len(row) != len(Header) {
		t.Fatalf("Row has %d cells; Header has %d", len(row), len(Header))
	}

	var back ListingRecord
	for i, col := range Header {
		back.Set(col, row[i])
	}
	if back != rec {
		t.Errorf("Set(Header, Row) = %+v; want %+v", back, rec)
	}
}

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"url_annonce", "url"},
		{"code_licence", "license_code"},
		{"date_inscription_hote", "host_joined_date"},
		{"title", "title"},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := CanonicalColumn(tt.in); got != tt.want {
			t.Errorf("CanonicalColumn(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
