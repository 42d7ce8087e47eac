package collectors

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/pkg/httpclient"
)

const listingHTML = `
<html><body>
<table>
  <tr>
    <th>Sr</th><th>Tender No</th><th>Details</th><th>Downloads</th><th>Advertised</th><th>Closing</th>
  </tr>
  <tr>
    <td>1</td>
    <td>TS-2026-001</td>
    <td>Construction of Primary School Lahore
        Category: Works
        Department: Education Department</td>
    <td><a href="/downloads/ts-2026-001.pdf">PDF</a></td>
    <td>20-08-2026</td>
    <td>15-09-2026</td>
  </tr>
  <tr>
    <td>2</td>
    <td>TS-2026-002</td>
    <td>Supply of Medical Equipment
        Category - Goods
        Dept: Health Department Karachi</td>
    <td><a href="/downloads/ts-2026-002.pdf">PDF</a><a href="/downloads/ts-2026-002-annex.pdf">Annex</a></td>
    <td>21-08-2026</td>
    <td>10-09-2026</td>
  </tr>
  <tr>
    <td colspan="6">No record found</td>
  </tr>
</table>
</body></html>`

type stubResponse struct {
	body   []byte
	status int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }

type stubHTTPClient struct {
	url     string
	headers map[string]string
	resp    stubResponse
	err     error
}

func (s *stubHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	s.url = url
	s.headers = headers
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestParseListingExtractsRows(t *testing.T) {
	now := time.Now().UTC()
	tenders, err := parseListing([]byte(listingHTML), now)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(tenders) != 2 {
		t.Fatalf("expected 2 tenders, got %d: %#v", len(tenders), tenders)
	}

	first := tenders[0]
	if first.Number != "TS-2026-001" {
		t.Fatalf("number = %q", first.Number)
	}
	if first.Title != "Construction of Primary School Lahore" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Category != "Works" || first.Department != "Education Department" {
		t.Fatalf("details not parsed: %#v", first)
	}
	if first.ClosingDate != "15-09-2026" {
		t.Fatalf("closing date = %q", first.ClosingDate)
	}
	if len(first.Links) != 1 || first.Links[0] != "/downloads/ts-2026-001.pdf" {
		t.Fatalf("links = %#v", first.Links)
	}
	if !first.ScrapedAt.Equal(now) {
		t.Fatalf("scraped_at not stamped")
	}

	second := tenders[1]
	if second.Category != "Goods" || second.Department != "Health Department Karachi" {
		t.Fatalf("label separators not handled: %#v", second)
	}
	if len(second.Links) != 2 {
		t.Fatalf("expected both download links, got %#v", second.Links)
	}
}

func TestParseListingEmptyTable(t *testing.T) {
	tenders, err := parseListing([]byte("<html><body><table></table></body></html>"), time.Now())
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(tenders) != 0 {
		t.Fatalf("empty table must yield an empty snapshot, got %#v", tenders)
	}
}

func TestCollectFetchesAndFilters(t *testing.T) {
	client := &stubHTTPClient{resp: stubResponse{body: []byte(listingHTML), status: http.StatusOK}}
	collector := NewPPRACollector(client)

	src := Source{
		ID:        "ppra",
		Name:      "PPRA",
		Type:      SourceTypePPRA,
		SourceURL: "https://ppra.example.org/tenders",
		Config:    map[string]any{ConfigCityParamKey: "city", ConfigUserAgentKey: "sentinel/1.0"},
	}

	tenders, err := collector.Collect(context.Background(), src, "Karachi")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if client.url != "https://ppra.example.org/tenders?city=Karachi" {
		t.Fatalf("city query param not applied: %s", client.url)
	}
	if client.headers["User-Agent"] != "sentinel/1.0" {
		t.Fatalf("configured headers not sent: %#v", client.headers)
	}
	if len(tenders) != 1 || tenders[0].Number != "TS-2026-002" {
		t.Fatalf("city filter wrong: %#v", tenders)
	}
}

func TestCollectNonOKStatusIsFailure(t *testing.T) {
	client := &stubHTTPClient{resp: stubResponse{body: []byte("maintenance"), status: http.StatusServiceUnavailable}}
	collector := NewPPRACollector(client)

	_, err := collector.Collect(context.Background(), Source{
		ID: "ppra", Name: "PPRA", Type: SourceTypePPRA, SourceURL: "https://ppra.example.org",
	}, "")
	if !errors.Is(err, ErrCollectionFailed) {
		t.Fatalf("expected ErrCollectionFailed, got %v", err)
	}
}

func TestCollectNetworkErrorIsFailure(t *testing.T) {
	client := &stubHTTPClient{err: errors.New("connection refused")}
	collector := NewPPRACollector(client)

	_, err := collector.Collect(context.Background(), Source{
		ID: "ppra", Name: "PPRA", Type: SourceTypePPRA, SourceURL: "https://ppra.example.org",
	}, "")
	if !errors.Is(err, ErrCollectionFailed) {
		t.Fatalf("expected ErrCollectionFailed, got %v", err)
	}
}

func TestFilterByCityMatchesAnyField(t *testing.T) {
	tenders := []domain.Tender{
		{Number: "T-1", Title: "Road resurfacing Multan"},
		{Number: "T-2", Department: "Multan Development Authority"},
		{Number: "T-3", Title: "Bridge repair", Department: "Highways"},
	}

	out := filterByCity(tenders, "multan")
	if len(out) != 2 {
		t.Fatalf("expected 2 matches, got %#v", out)
	}
	if out[0].Number != "T-1" || out[1].Number != "T-2" {
		t.Fatalf("filter must preserve order: %#v", out)
	}
}

func TestCollectorRegistryResolvesByType(t *testing.T) {
	reg := DefaultCollectorRegistry(&stubHTTPClient{})
	c, err := reg.CollectorFor(Source{ID: "any", Type: SourceTypePPRA})
	if err != nil {
		t.Fatalf("CollectorFor: %v", err)
	}
	if c.ID() != SourceTypePPRA {
		t.Fatalf("resolved wrong collector: %s", c.ID())
	}

	if _, err := reg.CollectorFor(Source{ID: "x", Type: "rss"}); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
