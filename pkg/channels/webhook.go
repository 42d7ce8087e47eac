package channels

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ppra-watch/tender-sentinel/pkg/httpclient"
)

// webhookChannel posts the tender event as JSON to an arbitrary HTTP sink.
type webhookChannel struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	typ     string
	log     Logger
}

func newWebhookChannel(_ context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("channel %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)

	return &webhookChannel{
		id:      cfg.ID,
		typ:     TypeWebhook,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func (h *webhookChannel) ID() string   { return h.id }
func (h *webhookChannel) Type() string { return h.typ }

func (h *webhookChannel) Send(ctx context.Context, msg Message) (string, error) {
	req := h.client.R().
		SetContext(ctx).
		SetBody(NewEvent(msg))

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return "", transientf("http request: %v", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return "", transientf("http response status %d: %s", resp.StatusCode(), snippet)
		}
		return "", terminalf("http response status %d: %s", resp.StatusCode(), snippet)
	}
	return resp.Header().Get("X-Request-Id"), nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
