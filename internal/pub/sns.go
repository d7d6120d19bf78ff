package pub

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/goccy/go-json"

	"profiledir/internal/types"
)

// SNS publishes team events to a topic instead of posting to URLs directly.
// The endpoint's URL field holds the topic ARN. Used by deployments that fan
// out through SNS subscriptions.
type SNS struct {
	cli *sns.Client
}

func NewSNS(c *sns.Client) *SNS { return &SNS{cli: c} }

func (s *SNS) TeamCreated(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return s.publish(ctx, ep, EventTeamCreated, snap)
}

func (s *SNS) TeamUpdated(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return s.publish(ctx, ep, EventTeamUpdated, snap)
}

func (s *SNS) TeamDeleted(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return s.publish(ctx, ep, EventTeamDeleted, snap)
}

func (s *SNS) publish(ctx context.Context, ep types.WebhookEndpoint, event string, snap types.TeamSnapshot) error {
	payload := eventPayload(event, snap)
	if !wantsEvent(ep, payload) {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.cli.Publish(ctx, &sns.PublishInput{
		TopicArn: &ep.URL,
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"content-type": {DataType: aws.String("String"), StringValue: aws.String("application/json")},
			"event":        {DataType: aws.String("String"), StringValue: aws.String(event)},
		},
	})
	return err
}
