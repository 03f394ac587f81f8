package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	TypeFeatureInvoked        = "feature.invoked"
	TypeSubscriptionActivated = "subscription.activated"
	TypeSubscriptionCancelled = "subscription.cancelled"
)

// Event is a usage or billing fact emitted for downstream consumers.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Feature    string    `json:"feature,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	Charged    bool      `json:"charged,omitempty"`
	Gateway    string    `json:"gateway,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

// NewSQSPublisher builds a publisher from the default AWS credential chain.
func NewSQSPublisher(ctx context.Context, queueURL string) (*SQSPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for SQS: %w", err)
	}
	return NewSQSPublisherWithClient(sqs.NewFromConfig(awsCfg), queueURL), nil
}

func NewSQSPublisherWithClient(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(e.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", e.Type, err)
	}
	return nil
}

// NopPublisher drops events. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
