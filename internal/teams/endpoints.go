package teams

import (
	"context"
	"sort"
	"sync"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

// EndpointStore keeps the registered webhook endpoints. The authoritative set
// is loaded from the store once per process lifetime and then mutated in
// memory in lockstep with writes.
type EndpointStore struct {
	store ports.DocStore

	mu     sync.Mutex
	byUser map[string]types.WebhookEndpoint
	loaded bool
}

func NewEndpointStore(store ports.DocStore) *EndpointStore {
	return &EndpointStore{store: store, byUser: make(map[string]types.WebhookEndpoint)}
}

func (s *EndpointStore) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	docs, err := s.store.All(ctx, types.CollWebhooks)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		ep := types.EndpointFromDoc(doc.Fields)
		s.byUser[ep.UserID] = ep
	}
	s.loaded = true
	return nil
}

// All returns every registered endpoint, ordered by owner for deterministic
// notification sequencing.
func (s *EndpointStore) All(ctx context.Context) ([]types.WebhookEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([]types.WebhookEndpoint, 0, len(s.byUser))
	for _, ep := range s.byUser {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Save registers or overwrites the owner's endpoint.
func (s *EndpointStore) Save(ctx context.Context, userID, url, filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep := types.WebhookEndpoint{UserID: userID, URL: url, Filter: filter}
	if err := s.store.Set(ctx, types.CollWebhooks, userID, ep.Doc(), false); err != nil {
		return err
	}
	s.byUser[userID] = ep
	return nil
}

// Delete removes the owner's endpoint if present.
func (s *EndpointStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.store.Get(ctx, types.CollWebhooks, userID)
	if err != nil {
		return err
	}
	if doc != nil {
		if err := s.store.Delete(ctx, types.CollWebhooks, userID); err != nil {
			return err
		}
	}
	delete(s.byUser, userID)
	return nil
}
