package channels

import (
	"context"
	"net/textproto"
	"strings"
	"testing"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

func TestEmailChannelRender(t *testing.T) {
	ch, err := newEmailChannel(context.Background(), ChannelConfig{
		ID:   "mail1",
		Type: TypeEmail,
		Email: &EmailChannelConfig{
			Host: "smtp.example.com",
			Port: 587,
			From: "bot@example.com",
			To:   "ops@example.com",
		},
	}, nil)
	if err != nil {
		t.Fatalf("newEmailChannel: %v", err)
	}

	raw := string(ch.(*emailChannel).render(Message{
		Subject: "New Tender: bridge repair",
		Body:    "New Tender Alert\n\nTitle: bridge repair",
		Tender:  domain.Tender{Number: "TS-1"},
	}))

	for _, want := range []string{
		"From: bot@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: New Tender: bridge repair\r\n",
		"Content-Type: text/plain",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("rendered mail missing %q:\n%s", want, raw)
		}
	}
	if !strings.HasSuffix(raw, "\r\n") {
		t.Fatalf("rendered mail must end with CRLF")
	}
}

func TestClassifySMTPErr(t *testing.T) {
	perm := classifySMTPErr("smtp auth", &textproto.Error{Code: 535, Msg: "authentication failed"})
	if Retryable(perm) {
		t.Fatalf("5xx reply should be terminal, got %v", perm)
	}

	temp := classifySMTPErr("smtp rcpt to", &textproto.Error{Code: 451, Msg: "try again later"})
	if !Retryable(temp) {
		t.Fatalf("4xx reply should stay retryable, got %v", temp)
	}
}
