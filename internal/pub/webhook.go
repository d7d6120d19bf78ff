// Package pub delivers team lifecycle events to configured endpoints, either
// directly over HTTP or through an SNS topic.
package pub

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"

	"profiledir/internal/types"
)

const (
	EventTeamCreated = "team_created"
	EventTeamUpdated = "team_updated"
	EventTeamDeleted = "team_deleted"
)

func eventPayload(event string, snap types.TeamSnapshot) map[string]any {
	// roster as []any so JMESPath functions like contains() can walk it
	team := make([]any, len(snap.Roster))
	for i, m := range snap.Roster {
		team[i] = m
	}
	return map[string]any{
		"event":   event,
		"team":    team,
		"captain": snap.Captain,
		"name":    snap.Name,
	}
}

// wantsEvent evaluates the endpoint's JMESPath filter against the payload.
// An empty filter, or a filter that fails to evaluate, delivers; only an
// expression yielding a falsy value suppresses.
func wantsEvent(ep types.WebhookEndpoint, payload map[string]any) bool {
	if ep.Filter == "" {
		return true
	}
	v, err := jmespath.Search(ep.Filter, payload)
	if err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// Webhook posts event payloads to endpoint URLs as JSON.
type Webhook struct {
	cli *http.Client
}

func NewWebhook(cli *http.Client) *Webhook {
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{cli: cli}
}

func (w *Webhook) TeamCreated(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return w.post(ctx, ep, EventTeamCreated, snap)
}

func (w *Webhook) TeamUpdated(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return w.post(ctx, ep, EventTeamUpdated, snap)
}

func (w *Webhook) TeamDeleted(ctx context.Context, ep types.WebhookEndpoint, snap types.TeamSnapshot) error {
	return w.post(ctx, ep, EventTeamDeleted, snap)
}

func (w *Webhook) post(ctx context.Context, ep types.WebhookEndpoint, event string, snap types.TeamSnapshot) error {
	payload := eventPayload(event, snap)
	if !wantsEvent(ep, payload) {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.cli.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned %d", ep.URL, resp.StatusCode)
	}
	return nil
}
