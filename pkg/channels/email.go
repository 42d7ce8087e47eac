package channels

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
)

// emailChannel delivers messages over SMTP with STARTTLS.
type emailChannel struct {
	id   string
	typ  string
	cfg  EmailChannelConfig
	log  Logger
	addr string
}

func newEmailChannel(_ context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.Email == nil {
		return nil, fmt.Errorf("channel %q missing email configuration", cfg.ID)
	}

	return &emailChannel{
		id:   cfg.ID,
		typ:  TypeEmail,
		cfg:  *cfg.Email,
		log:  ensureLogger(log),
		addr: net.JoinHostPort(cfg.Email.Host, fmt.Sprintf("%d", cfg.Email.Port)),
	}, nil
}

func (e *emailChannel) ID() string   { return e.id }
func (e *emailChannel) Type() string { return e.typ }

// Send submits the message to the SMTP server. The dial respects the
// context deadline; the SMTP conversation itself inherits the connection.
func (e *emailChannel) Send(ctx context.Context, msg Message) (string, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return "", transientf("smtp dial %s: %v", e.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return "", transientf("smtp handshake: %v", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
			return "", classifySMTPErr("smtp starttls", err)
		}
	}

	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return "", classifySMTPErr("smtp auth", err)
		}
	}

	if err := client.Mail(e.cfg.From); err != nil {
		return "", classifySMTPErr("smtp mail from", err)
	}
	if err := client.Rcpt(e.cfg.To); err != nil {
		return "", classifySMTPErr("smtp rcpt to", err)
	}

	writer, err := client.Data()
	if err != nil {
		return "", classifySMTPErr("smtp data", err)
	}
	if _, err := writer.Write(e.render(msg)); err != nil {
		writer.Close()
		return "", transientf("smtp write body: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", classifySMTPErr("smtp close body", err)
	}
	if err := client.Quit(); err != nil {
		// Delivery already accepted; a noisy quit is not a failure.
		e.log.DebugObj("smtp quit failed", "channel_email_quit", map[string]any{
			"channel_id": e.id,
			"error":      err.Error(),
		})
	}

	e.log.DebugObj("email channel delivered message", "channel_email_delivery", map[string]any{
		"channel_id": e.id,
		"to":         e.cfg.To,
	})
	return e.cfg.To, nil
}

// render assembles the RFC 5322 payload.
func (e *emailChannel) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// classifySMTPErr treats permanent SMTP status codes (5xx) as terminal.
// Authentication failures in particular will not heal within a run.
func classifySMTPErr(op string, err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) && proto.Code >= 500 {
		return terminalf("%s: %v", op, err)
	}
	return transientf("%s: %v", op, err)
}
