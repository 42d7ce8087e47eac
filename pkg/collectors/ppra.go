package collectors

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

// ppraCollector scrapes the public procurement authority's active-tenders
// listing. The listing is a plain HTML table; layout fragility stays inside
// this file so the pipeline only ever sees the Tender contract.
type ppraCollector struct {
	client HTTPClient
}

// NewPPRACollector builds a collector for the PPRA active tender listing.
func NewPPRACollector(client HTTPClient) Collector {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &ppraCollector{client: client}
}

func (p *ppraCollector) ID() string { return SourceTypePPRA }

// Collect fetches the listing and extracts every tender row. An empty table
// is a valid snapshot; an unreachable or unparseable page is a collection
// failure.
func (p *ppraCollector) Collect(ctx context.Context, cfg Source, city string) ([]domain.Tender, error) {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("%w: source %q has empty source_url", ErrCollectionFailed, cfg.ID)
	}

	listingURL, err := buildListingURL(cfg, city)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}

	resp, err := p.client.Get(ctx, listingURL, Headers(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch listing: %v", ErrCollectionFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: listing returned status %d body: %s",
			ErrCollectionFailed, resp.StatusCode(), responseSnippet(resp.Body()))
	}

	tenders, err := parseListing(resp.Body(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}

	if city != "" {
		tenders = filterByCity(tenders, city)
	}
	return tenders, nil
}

// buildListingURL optionally attaches the city as a server-side query
// parameter when the source config names one.
func buildListingURL(cfg Source, city string) (string, error) {
	param := ConfigString(cfg, ConfigCityParamKey, "")
	if city == "" || param == "" {
		return cfg.SourceURL, nil
	}

	u, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source_url: %w", err)
	}
	q := u.Query()
	q.Set(param, city)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseListing extracts tender rows from the listing HTML.
// Expected columns: Sr No | Tender No | Tender Details | Downloads |
// Advertisement Date | Closing Date.
func parseListing(body []byte, scrapedAt time.Time) ([]domain.Tender, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var tenders []domain.Tender
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}

		number := strings.TrimSpace(cells.Eq(1).Text())
		if number == "" {
			return
		}
		rowText := strings.ToLower(row.Text())
		if strings.Contains(rowText, "no record") || strings.Contains(rowText, "no data") {
			return
		}

		details := parseDetails(cells.Eq(2).Text())
		closing := strings.TrimSpace(cells.Eq(5).Text())

		var links []string
		cells.Eq(3).Find("a").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
				links = append(links, strings.TrimSpace(href))
			}
		})

		tenders = append(tenders, domain.Tender{
			Number:      number,
			Title:       details.title,
			Category:    details.category,
			Department:  details.department,
			ClosingDate: closing,
			Links:       links,
			ScrapedAt:   scrapedAt,
		})
	})

	return tenders, nil
}

type tenderDetails struct {
	title      string
	category   string
	department string
}

// parseDetails splits the free-form details cell into title, category and
// department. The first line is the title; later lines are matched on
// keywords because the source formats them inconsistently.
func parseDetails(raw string) tenderDetails {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return tenderDetails{}
	}

	details := tenderDetails{title: lines[0]}
	for _, line := range lines[1:] {
		lower := strings.ToLower(line)
		switch {
		case details.category == "" && strings.Contains(lower, "category"):
			details.category = stripLabel(line)
		case details.department == "" && containsAny(lower, "department", "dept", "owner", "organization"):
			details.department = stripLabel(line)
		}
	}
	return details
}

// stripLabel drops a leading "Label:" or "Label -" prefix from a line.
func stripLabel(line string) string {
	for _, sep := range []string{":", " - "} {
		if idx := strings.Index(line, sep); idx >= 0 {
			if val := strings.TrimSpace(line[idx+len(sep):]); val != "" {
				return val
			}
		}
	}
	return strings.TrimSpace(line)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// filterByCity keeps tenders whose display fields mention the city,
// case-insensitively. Applied after collection because the source's
// server-side filter cannot be relied on.
func filterByCity(tenders []domain.Tender, city string) []domain.Tender {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return tenders
	}

	out := make([]domain.Tender, 0, len(tenders))
	for _, t := range tenders {
		haystack := strings.ToLower(strings.Join([]string{t.Title, t.Department, t.Category}, "\n"))
		if strings.Contains(haystack, city) {
			out = append(out, t)
		}
	}
	return out
}
