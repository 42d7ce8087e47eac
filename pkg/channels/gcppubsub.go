package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubChannel implements a machine channel backed by GCP Pub/Sub.
type pubsubChannel struct {
	id     string
	typ    string
	topic  *pubsub.Topic
	client *pubsub.Client
	log    Logger
}

// newPubSubChannel creates a Pub/Sub channel. When a credentials file is
// configured it overrides application default credentials.
func newPubSubChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("channel %q missing pubsub configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}

	return &pubsubChannel{
		id:     cfg.ID,
		typ:    TypePubSub,
		topic:  client.Topic(cfg.PubSub.Topic),
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (p *pubsubChannel) ID() string   { return p.id }
func (p *pubsubChannel) Type() string { return p.typ }

// Send publishes the tender event and waits for the server ack.
func (p *pubsubChannel) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(NewEvent(msg))
	if err != nil {
		return "", terminalf("marshal event: %v", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"tender_number": msg.Tender.Number,
		},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		p.log.ErrorObj("pubsub channel send failed", "channel_pubsub_error", map[string]any{
			"channel_id": p.id,
			"error":      err.Error(),
		})
		return "", transientf("pubsub publish: %v", err)
	}

	p.log.DebugObj("pubsub channel delivered event", "channel_pubsub_delivery", map[string]any{
		"channel_id": p.id,
	})
	return serverID, nil
}
