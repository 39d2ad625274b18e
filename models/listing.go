package models

// ListingRecord is one discovered listing. URL is the canonical key; every
// other field defaults to the empty string so the flat CSV schema stays stable.
type ListingRecord struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	LicenseCode      string `json:"license_code"`
	HostName         string `json:"host_name"`
	HostProfileURL   string `json:"host_profile_url"`
	HostRating       string `json:"host_rating"`
	HostListingCount string `json:"host_listing_count"`
	HostJoinedDate   string `json:"host_joined_date"`
}

// Header is the fixed column order of every dataset file.
var Header = []string{
	"url",
	"title",
	"license_code",
	"host_name",
	"host_profile_url",
	"host_rating",
	"host_listing_count",
	"host_joined_date",
}

// legacyHeader maps column names written by earlier versions of the job.
var legacyHeader = map[string]string{
	"url_annonce":           "url",
	"titre_annonce":         "title",
	"code_licence":          "license_code",
	"nom_hote":              "host_name",
	"url_profil_hote":       "host_profile_url",
	"note_globale_hote":     "host_rating",
	"nb_annonces_hote":      "host_listing_count",
	"date_inscription_hote": "host_joined_date",
}

// CanonicalColumn returns the current column name for a (possibly legacy) header cell.
func CanonicalColumn(name string) string {
	if c, ok := legacyHeader[name]; ok {
		return c
	}
	return name
}

// Row flattens the record in Header order.
func (r ListingRecord) Row() []string {
	return []string{
		r.URL,
		r.Title,
		r.LicenseCode,
		r.HostName,
		r.HostProfileURL,
		r.HostRating,
		r.HostListingCount,
		r.HostJoinedDate,
	}
}

// Set assigns a single column by its canonical name. Unknown columns are ignored.
func (r *ListingRecord) Set(column, value string) {
	switch column {
	case "url":
		r.URL = value
	case "title":
		r.Title = value
	case "license_code":
		r.LicenseCode = value
	case "host_name":
		r.HostName = value
	case "host_profile_url":
		r.HostProfileURL = value
	case "host_rating":
		r.HostRating = value
	case "host_listing_count":
		r.HostListingCount = value
	case "host_joined_date":
		r.HostJoinedDate = value
	}
}

// RunReport summarises one run and the master dataset after the merge.
type RunReport struct {
	RunID           string
	StopReason      string
	ElapsedMinutes  float64
	PagesVisited    int
	NewURLs         int
	RunRecords      int
	MasterRecords   int
	WithLicense     int
	WithHost        int
	LicenseCoverage float64
	TopHosts        []HostCount
}

// HostCount is one row of the top-hosts table.
type HostCount struct {
	Name     string
	Profile  string
	Listings int
}
