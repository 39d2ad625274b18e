package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"airbnb-harvester/models"
	"airbnb-harvester/utils"
)

const topHostLimit = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &InsightService{logger: logger, out: os.Stdout}
}

// Generate fills the dataset statistics of report from the run records and the
// merged master dataset. Run metadata already set on report is kept.
func (s *InsightService) Generate(report *models.RunReport, run, master []models.ListingRecord) *models.RunReport {
	if report == nil {
		report = &models.RunReport{}
	}
	report.RunRecords = len(run)
	report.MasterRecords = len(master)
	report.WithLicense = 0
	report.WithHost = 0
	report.TopHosts = nil

	if len(master) == 0 {
		report.LicenseCoverage = 0
		return report
	}

	type hostKey struct{ name, profile string }
	byHost := make(map[hostKey]int)

	for _, r := range master {
		if r.LicenseCode != "" {
			report.WithLicense++
		}
		if r.HostName == "" && r.HostProfileURL == "" {
			continue
		}
		report.WithHost++
		key := hostKey{profile: r.HostProfileURL}
		if key.profile == "" {
			key.name = r.HostName
		}
		byHost[key]++
	}
	report.LicenseCoverage = round2(100 * float64(report.WithLicense) / float64(len(master)))

	names := make(map[string]string)
	for _, r := range master {
		if r.HostProfileURL != "" && r.HostName != "" {
			names[r.HostProfileURL] = r.HostName
		}
	}

	for k, n := range byHost {
		name := k.name
		if k.profile != "" {
			name = names[k.profile]
		}
		report.TopHosts = append(report.TopHosts, models.HostCount{Name: name, Profile: k.profile, Listings: n})
	}
	sort.Slice(report.TopHosts, func(i, j int) bool {
		a, b := report.TopHosts[i], report.TopHosts[j]
		if a.Listings != b.Listings {
			return a.Listings > b.Listings
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Profile < b.Profile
	})
	if len(report.TopHosts) > topHostLimit {
		report.TopHosts = report.TopHosts[:topHostLimit]
	}

	return report
}

func (s *InsightService) Print(r *models.RunReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 AIRBNB HARVEST REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Run\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run ID                 : %s\n", r.RunID)
	fmt.Fprintf(w, "  Stop reason            : %s\n", r.StopReason)
	fmt.Fprintf(w, "  Elapsed                : %.1f min\n", r.ElapsedMinutes)
	fmt.Fprintf(w, "  Search pages visited   : %d\n", r.PagesVisited)
	fmt.Fprintf(w, "  New URLs discovered    : %d\n", r.NewURLs)
	fmt.Fprintf(w, "  Records this run       : \033[1m%d\033[0m\n", r.RunRecords)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Master dataset\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total records          : \033[1m%d\033[0m\n", r.MasterRecords)
	fmt.Fprintf(w, "  With license code      : %d (\033[1;32m%.2f%%\033[0m)\n", r.WithLicense, r.LicenseCoverage)
	fmt.Fprintf(w, "  With host              : %d\n", r.WithHost)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Hosts\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopHosts) == 0 {
		fmt.Fprintf(w, "  No host data\n")
	} else {
		for i, h := range r.TopHosts {
			name := h.Name
			if name == "" {
				name = h.Profile
			}
			bar := strings.Repeat("█", h.Listings)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-30s %s (%d)\n", i+1, truncate(name, 28), bar, h.Listings)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
