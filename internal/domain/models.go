package domain

import (
	"strings"
	"time"
)

// Domain contains the core tender model shared across the pipeline.

// Tender is one listing entry scraped from the procurement authority site.
// Number is the external unique key and the only field deduplication relies on.
type Tender struct {
	Number      string    `json:"tender_number"`
	Title       string    `json:"tender_title"`
	Category    string    `json:"category"`
	Department  string    `json:"department_owner"`
	ClosingDate string    `json:"closing_date"`
	Links       []string  `json:"links,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Identity returns the normalized deduplication key for the tender.
// Empty means the tender cannot be deduplicated and must be dropped.
func (t Tender) Identity() string {
	return NormalizeIdentity(t.Number)
}

// NormalizeIdentity folds a raw tender number into its canonical key form.
// The source is not consistent about case or surrounding whitespace.
func NormalizeIdentity(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}

// ClosingTime parses the closing date against the layouts the source has
// been observed to use. The bool reports whether parsing succeeded; callers
// treat failure as non-fatal and keep the raw display string.
func (t Tender) ClosingTime() (time.Time, bool) {
	raw := strings.TrimSpace(t.ClosingDate)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"02-01-2006",
		"02/01/2006",
		"2 Jan, 2006",
		"Jan 2, 2006",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
