package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsClient defines the minimal subset of the SQS client used by sqsChannel.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsChannel implements a machine channel backed by AWS SQS. Instead of the
// rendered body it enqueues the tender event as JSON for downstream systems.
type sqsChannel struct {
	id       string
	queueURL string
	typ      string
	client   sqsClient
	log      Logger
}

// newSQSChannel creates a new SQS channel with the given configuration.
func newSQSChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("channel %q missing sqs configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.AccessKey, cfg.SQS.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &sqsChannel{
		id:       cfg.ID,
		typ:      TypeSQS,
		queueURL: cfg.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *sqsChannel) ID() string   { return s.id }
func (s *sqsChannel) Type() string { return s.typ }

// Send enqueues the tender event on the configured SQS queue.
func (s *sqsChannel) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(NewEvent(msg))
	if err != nil {
		return "", terminalf("marshal event: %v", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tender_number": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Tender.Number),
			},
		},
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		s.log.ErrorObj("sqs channel send failed", "channel_sqs_error", map[string]any{
			"channel_id": s.id,
			"error":      err.Error(),
		})
		return "", classifyAWSErr("send message to sqs", err)
	}
	s.log.DebugObj("sqs channel delivered event", "channel_sqs_delivery", map[string]any{
		"channel_id": s.id,
	})
	return aws.ToString(out.MessageId), nil
}
