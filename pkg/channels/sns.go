package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
)

// snsClient defines the minimal subset of the SNS client used by snsChannel.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsChannel implements the Channel interface for AWS SNS. It publishes the
// human-readable body either to a topic or directly to a phone number.
type snsChannel struct {
	id          string
	typ         string
	topicARN    string
	phoneNumber string
	client      snsClient
	log         Logger
}

// newSNSChannel creates a new SNS channel with the given configuration.
func newSNSChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("channel %q missing sns configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.AccessKey, cfg.SNS.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsChannel{
		id:          cfg.ID,
		typ:         TypeSNS,
		topicARN:    cfg.SNS.TopicARN,
		phoneNumber: cfg.SNS.PhoneNumber,
		client:      sns.NewFromConfig(awsCfg),
		log:         ensureLogger(log),
	}, nil
}

// loadAWSConfig resolves the AWS client config, preferring explicit static
// credentials from the channel entry over the default provider chain.
func loadAWSConfig(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	return awscfg.LoadDefaultConfig(ctx, opts...)
}

func (s *snsChannel) ID() string   { return s.id }
func (s *snsChannel) Type() string { return s.typ }

// Send publishes the message to the configured SNS destination.
func (s *snsChannel) Send(ctx context.Context, msg Message) (string, error) {
	input := &sns.PublishInput{
		Message: aws.String(msg.Body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tender_number": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Tender.Number),
			},
		},
	}
	if s.topicARN != "" {
		input.TopicArn = aws.String(s.topicARN)
		input.Subject = aws.String(msg.Subject)
	} else {
		input.PhoneNumber = aws.String(s.phoneNumber)
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns channel send failed", "channel_sns_error", map[string]any{
			"channel_id": s.id,
			"error":      err.Error(),
		})
		return "", classifyAWSErr("sns publish", err)
	}

	s.log.DebugObj("sns channel delivered message", "channel_sns_delivery", map[string]any{
		"channel_id": s.id,
	})
	return aws.ToString(out.MessageId), nil
}

// classifyAWSErr treats authorization and validation failures as terminal;
// throttling and service faults stay transient.
func classifyAWSErr(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorFault() {
		case smithy.FaultClient:
			switch apiErr.ErrorCode() {
			case "ThrottledException", "Throttling", "ThrottlingException", "RequestTimeout", "TooManyRequestsException":
				return transientf("%s: %v", op, err)
			}
			return terminalf("%s: %v", op, err)
		default:
			return transientf("%s: %v", op, err)
		}
	}
	return transientf("%s: %v", op, err)
}
