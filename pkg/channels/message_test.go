package channels

import (
	"testing"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

func TestNewEventCarriesParsedClosingDate(t *testing.T) {
	ev := NewEvent(Message{
		Body:   "New Tender Alert",
		City:   "Lahore",
		Tender: domain.Tender{Number: "TS-1", ClosingDate: "15-09-2026"},
	})

	if ev.ClosingAt == nil {
		t.Fatalf("parseable closing date should populate closing_at")
	}
	want := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	if !ev.ClosingAt.Equal(want) {
		t.Fatalf("closing_at = %v", ev.ClosingAt)
	}
	if ev.NotifiedAt.IsZero() {
		t.Fatalf("notified_at must be stamped")
	}
	if ev.City != "Lahore" || ev.MessageBody != "New Tender Alert" {
		t.Fatalf("event fields wrong: %#v", ev)
	}
}

func TestNewEventOmitsUnparseableClosingDate(t *testing.T) {
	ev := NewEvent(Message{Tender: domain.Tender{Number: "TS-2", ClosingDate: "to be announced"}})
	if ev.ClosingAt != nil {
		t.Fatalf("unparseable date must leave closing_at unset, got %v", ev.ClosingAt)
	}
	if ev.Tender.ClosingDate != "to be announced" {
		t.Fatalf("raw display string must survive: %#v", ev.Tender)
	}
}
