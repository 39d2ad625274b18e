package services

import (
	"bytes"
	"strings"
	"testing"

	"airbnb-harvester/models"
)

func sampleMaster() []models.ListingRecord {
	return []models.ListingRecord{
		{URL: "https://www.airbnb.com/rooms/1", LicenseCode: "ABC-DEF-1111", HostName: "Sara", HostProfileURL: "https://www.airbnb.com/users/show/1"},
		{URL: "https://www.airbnb.com/rooms/2", LicenseCode: "ABC-DEF-2222", HostName: "Sara", HostProfileURL: "https://www.airbnb.com/users/show/1"},
		{URL: "https://www.airbnb.com/rooms/3", HostName: "Omar", HostProfileURL: "https://www.airbnb.com/users/show/2"},
		{URL: "https://www.airbnb.com/rooms/4", HostName: "Lina"},
		{URL: "https://www.airbnb.com/rooms/5"},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	master := sampleMaster()
	r := svc.Generate(&models.RunReport{RunID: "r1"}, master[:2], master)

	if r.RunID != "r1" {
		t.Errorf("RunID overwritten: %q", r.RunID)
	}
	if r.RunRecords != 2 || r.MasterRecords != 5 {
		t.Errorf("records: run %d master %d; want 2 and 5", r.RunRecords, r.MasterRecords)
	}
	if r.WithLicense != 2 || r.WithHost != 4 {
		t.Errorf("WithLicense %d WithHost %d; want 2 and 4", r.WithLicense, r.WithHost)
	}
	if r.LicenseCoverage != 40 {
		t.Errorf("LicenseCoverage: got %.2f, want 40", r.LicenseCoverage)
	}
}

func TestInsightTopHosts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil, nil, sampleMaster())

	if len(r.TopHosts) != 3 {
		t.Fatalf("TopHosts len: got %d, want 3", len(r.TopHosts))
	}
	top := r.TopHosts[0]
	if top.Name != "Sara" || top.Listings != 2 || top.Profile != "https://www.airbnb.com/users/show/1" {
		t.Errorf("TopHosts[0] = %+v", top)
	}
	if r.TopHosts[1].Name != "Lina" || r.TopHosts[2].Name != "Omar" {
		t.Errorf("ties should sort by name: %+v", r.TopHosts)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil, nil, nil)
	if r.MasterRecords != 0 || r.LicenseCoverage != 0 || len(r.TopHosts) != 0 {
		t.Errorf("expected an empty report, got %+v", r)
	}
}

func TestInsightPrint(t *testing.T) {
	var buf bytes.Buffer
	svc := NewInsightService(newTestLogger())
	svc.out = &buf

	svc.Print(svc.Generate(&models.RunReport{RunID: "abc", StopReason: "time_limit"}, nil, sampleMaster()))

	out := buf.String()
	for _, want := range []string{"abc", "time_limit", "Sara", "40.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
