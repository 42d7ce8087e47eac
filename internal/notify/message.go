package notify

import (
	"fmt"
	"strings"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
	"github.com/ppra-watch/tender-sentinel/pkg/channels"
)

// missingField is rendered in place of any absent tender field so the
// message shape stays identical regardless of how sparse the source row was.
const missingField = "N/A"

const deliverablesNote = "see the tender documents for deliverables"

// Format renders the fixed alert template for one tender. Every field slot
// is always present; only the first link is included.
func Format(t domain.Tender, city string) channels.Message {
	var b strings.Builder
	b.WriteString("New Tender Alert\n\n")
	fmt.Fprintf(&b, "Title: %s\n", orMissing(t.Title))
	fmt.Fprintf(&b, "Tender No: %s\n", orMissing(t.Number))
	fmt.Fprintf(&b, "Category: %s\n", orMissing(t.Category))
	fmt.Fprintf(&b, "Department: %s\n", orMissing(t.Department))
	fmt.Fprintf(&b, "Closing Date: %s\n", orMissing(t.ClosingDate))
	fmt.Fprintf(&b, "Link: %s\n", orMissing(firstLink(t.Links)))
	fmt.Fprintf(&b, "Deliverables: %s\n", deliverablesNote)

	subject := fmt.Sprintf("New Tender: %s", orMissing(firstNonEmpty(t.Title, t.Number)))

	return channels.Message{
		Subject: subject,
		Body:    b.String(),
		Tender:  t,
		City:    city,
	}
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingField
	}
	return strings.TrimSpace(s)
}

func firstLink(links []string) string {
	for _, l := range links {
		if strings.TrimSpace(l) != "" {
			return strings.TrimSpace(l)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
