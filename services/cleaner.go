package services

import (
	"regexp"
	"strconv"
	"strings"

	"airbnb-harvester/models"
	"airbnb-harvester/utils"
)

var (
	// ratingRegexp captures a numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`(?:^|[^\d.,])([0-5](?:[.,]\d{1,2})?)(?:$|\D)`)
	// countRegexp captures the first integer, e.g. "12 listings" → 12
	countRegexp = regexp.MustCompile(`\d+`)
)

// Cleaner normalises records before they are written. It never invents data:
// a value that fails validation becomes the empty string.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Cleaner{logger: logger}
}

// Clean returns one normalised record per URL. Records without a URL are
// dropped; when a URL repeats, the later record wins but keeps the earlier
// position.
func (c *Cleaner) Clean(raw []models.ListingRecord) []models.ListingRecord {
	index := make(map[string]int, len(raw))
	result := make([]models.ListingRecord, 0, len(raw))

	for _, r := range raw {
		rec := c.normalise(r)
		if rec.URL == "" {
			c.logger.Warn("[cleaner] Dropping record with empty URL: %q", rec.Title)
			continue
		}

		if i, dup := index[rec.URL]; dup {
			c.logger.Debug("[cleaner] Duplicate URL replaced: %s", rec.URL)
			result[i] = rec
			continue
		}
		index[rec.URL] = len(result)
		result = append(result, rec)
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] Cleaned %d → %d records (dropped %d)", len(raw), len(result), dropped)
	}
	return result
}

func (c *Cleaner) normalise(r models.ListingRecord) models.ListingRecord {
	return models.ListingRecord{
		URL:              strings.TrimSpace(r.URL),
		Title:            utils.NormaliseText(r.Title),
		LicenseCode:      strings.ToUpper(utils.NormaliseText(r.LicenseCode)),
		HostName:         utils.NormaliseText(r.HostName),
		HostProfileURL:   strings.TrimSpace(r.HostProfileURL),
		HostRating:       c.parseRating(r.HostRating),
		HostListingCount: c.parseCount(r.HostListingCount),
		HostJoinedDate:   utils.NormaliseText(r.HostJoinedDate),
	}
}

// parseRating keeps a 0.0–5.0 rating as text with a dot separator.
func (c *Cleaner) parseRating(raw string) string {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	v := strings.Replace(match[1], ",", ".", 1)
	val, err := strconv.ParseFloat(v, 64)
	if err != nil || val < 0 || val > 5 {
		return ""
	}
	return v
}

func (c *Cleaner) parseCount(raw string) string {
	match := countRegexp.FindString(raw)
	if match == "" {
		return ""
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
