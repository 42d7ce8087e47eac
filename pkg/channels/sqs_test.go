package channels

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("sqs-msg-1")}, nil
}

func TestSQSChannelEnqueuesEvent(t *testing.T) {
	client := &fakeSQSClient{}
	ch := &sqsChannel{
		id:       "queue1",
		typ:      TypeSQS,
		queueURL: "https://sqs.us-east-1.amazonaws.com/1/tenders",
		client:   client,
		log:      noopLogger{},
	}

	receipt, err := ch.Send(context.Background(), Message{
		Body:   "New Tender Alert",
		Tender: domain.Tender{Number: "TS-55", Title: "road works"},
		City:   "Quetta",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt != "sqs-msg-1" {
		t.Fatalf("receipt = %q", receipt)
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://sqs.us-east-1.amazonaws.com/1/tenders" {
		t.Fatalf("QueueUrl = %s", got)
	}

	var event Event
	if err := json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &event); err != nil {
		t.Fatalf("unmarshal message body: %v", err)
	}
	if event.Tender.Number != "TS-55" || event.City != "Quetta" {
		t.Fatalf("event payload wrong: %#v", event)
	}
	attr, ok := client.input.MessageAttributes["tender_number"]
	if !ok || aws.ToString(attr.StringValue) != "TS-55" {
		t.Fatalf("tender_number attribute missing or wrong: %#v", attr)
	}
}

func TestSQSChannelSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	ch := &sqsChannel{id: "queue1", typ: TypeSQS, queueURL: "https://example", client: client, log: noopLogger{}}

	if _, err := ch.Send(context.Background(), Message{Tender: domain.Tender{Number: "TS-1"}}); err == nil {
		t.Fatalf("expected error from Send")
	}
}
