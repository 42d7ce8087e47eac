package notify

import (
	"strings"
	"testing"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

func TestFormatRendersEveryField(t *testing.T) {
	tender := domain.Tender{
		Number:      "TS-42",
		Title:       "Supply of Lab Equipment",
		Category:    "Goods",
		Department:  "Health Department",
		ClosingDate: "15-09-2026",
		Links:       []string{"https://example.org/tender/42.pdf", "https://example.org/alt.pdf"},
	}

	msg := Format(tender, "Lahore")

	if msg.Subject != "New Tender: Supply of Lab Equipment" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.City != "Lahore" {
		t.Fatalf("city = %q", msg.City)
	}
	for _, want := range []string{
		"Title: Supply of Lab Equipment",
		"Tender No: TS-42",
		"Category: Goods",
		"Department: Health Department",
		"Closing Date: 15-09-2026",
		"Link: https://example.org/tender/42.pdf",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "alt.pdf") {
		t.Fatalf("body should carry only the first link:\n%s", msg.Body)
	}
}

func TestFormatFillsMissingFields(t *testing.T) {
	msg := Format(domain.Tender{Number: "TS-43"}, "")

	if msg.Subject != "New Tender: TS-43" {
		t.Fatalf("subject should fall back to the tender number, got %q", msg.Subject)
	}
	for _, want := range []string{
		"Title: N/A",
		"Category: N/A",
		"Department: N/A",
		"Closing Date: N/A",
		"Link: N/A",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing placeholder line %q:\n%s", want, msg.Body)
		}
	}
}

func TestFormatProducesIdenticalShape(t *testing.T) {
	full := Format(domain.Tender{
		Number: "TS-1", Title: "t", Category: "c", Department: "d", ClosingDate: "x",
	}, "")
	sparse := Format(domain.Tender{Number: "TS-2"}, "")

	if got, want := strings.Count(full.Body, "\n"), strings.Count(sparse.Body, "\n"); got != want {
		t.Fatalf("message shape differs: %d lines vs %d lines", got, want)
	}
}
