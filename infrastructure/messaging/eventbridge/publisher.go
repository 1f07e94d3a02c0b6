package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/events"
)

const source = "inkboard.canvas"

// Publisher implements ports.EventBus using AWS EventBridge. Consumers
// (activity feeds, search indexing) subscribe through EventBridge rules
// managed outside this service.
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates an EventBridge publisher
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) ports.EventBus {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish sends a single domain event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.GetEventType(), err)
	}

	entry := types.PutEventsRequestEntry{
		EventBusName: aws.String(p.eventBusName),
		Source:       aws.String(source),
		DetailType:   aws.String(event.GetEventType()),
		Detail:       aws.String(string(detail)),
		Time:         aws.Time(event.GetTimestamp()),
		Resources: []string{
			fmt.Sprintf("arn:aws:inkboard::%s", event.GetAggregateID()),
		},
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("publish event to EventBridge: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for _, e := range result.Entries {
			if e.ErrorCode != nil {
				p.logger.Error("event rejected by EventBridge",
					zap.String("event_type", event.GetEventType()),
					zap.String("error_code", aws.ToString(e.ErrorCode)),
					zap.String("error_message", aws.ToString(e.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("event %s failed to publish", event.GetEventType())
	}

	return nil
}

// NopBus is an EventBus that drops events. Used when no event bus is
// configured (local development, tests).
type NopBus struct{}

// NewNopBus creates a no-op event bus
func NewNopBus() ports.EventBus {
	return NopBus{}
}

// Publish implements ports.EventBus
func (NopBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return nil
}
