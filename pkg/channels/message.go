package channels

import (
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

// Message is one rendered notification. Human channels (telegram, email,
// sns) deliver Subject/Body; machine channels (sqs, pubsub, webhook)
// serialize the embedded tender as an Event instead.
type Message struct {
	Subject string
	Body    string
	Tender  domain.Tender
	City    string
}

// Event is the machine-readable payload published for one new tender.
// ClosingAt is set only when the source's display date was parseable;
// consumers fall back on the raw string inside Tender.
type Event struct {
	City        string        `json:"city,omitempty"`
	Tender      domain.Tender `json:"tender"`
	ClosingAt   *time.Time    `json:"closing_at,omitempty"`
	NotifiedAt  time.Time     `json:"notified_at"`
	MessageBody string        `json:"message_body,omitempty"`
}

// NewEvent constructs the downstream event for a message.
func NewEvent(msg Message) Event {
	ev := Event{
		City:        msg.City,
		Tender:      msg.Tender,
		NotifiedAt:  time.Now().UTC(),
		MessageBody: msg.Body,
	}
	if ts, ok := msg.Tender.ClosingTime(); ok {
		ev.ClosingAt = &ts
	}
	return ev
}
