// Package templates manages the profile-card template collection: ten slots
// per user, loaded once per process lifetime and mutated in memory in
// lockstep with store writes. Fuzzy lookup is delegated to the matcher
// collaborator.
package templates

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

// SearchLimit caps ranked search results.
const SearchLimit = 20

const (
	slotMin = 0
	slotMax = 9
)

type Store struct {
	store   ports.DocStore
	matcher ports.Matcher

	mu        sync.Mutex
	templates []types.Template
	loaded    bool
}

func NewStore(store ports.DocStore, matcher ports.Matcher) *Store {
	return &Store{store: store, matcher: matcher}
}

// ParseSlot extracts the digits from a raw slot value. Range checking is the
// caller's concern; Update enforces 0-9, Delete accepts whatever parses.
func ParseSlot(raw string) (int, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("slot %q has no digits", raw)
	}
	return strconv.Atoi(digits.String())
}

func templateID(userID string, slot int) string {
	return fmt.Sprintf("%s-%d", userID, slot)
}

func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	docs, err := s.store.All(ctx, types.CollTemplates)
	if err != nil {
		return err
	}
	s.templates = make([]types.Template, 0, len(docs))
	for _, doc := range docs {
		s.templates = append(s.templates, types.TemplateFromDoc(doc.Fields))
	}
	s.loaded = true
	return nil
}

// All returns the authoritative in-memory template set.
func (s *Store) All(ctx context.Context) ([]types.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([]types.Template, len(s.templates))
	copy(out, s.templates)
	return out, nil
}

// Get returns the template with the given composite id, or nil.
func (s *Store) Get(ctx context.Context, id string) (*types.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	var found *types.Template
	n := 0
	for i := range s.templates {
		if s.templates[i].ID == id {
			found = &s.templates[i]
			n++
		}
	}
	if n == 1 {
		t := *found
		return &t, nil
	}
	return nil, nil
}

// Search runs the fuzzy matcher over template names and keywords and returns
// up to SearchLimit templates, best match first.
func (s *Store) Search(ctx context.Context, terms string) ([]types.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	corpus := make([]string, len(s.templates))
	for i, t := range s.templates {
		corpus[i] = t.Name + " " + strings.Join(t.Keywords, " ")
	}

	ranked := s.matcher.Search(corpus, terms)
	if len(ranked) > SearchLimit {
		ranked = ranked[:SearchLimit]
	}
	out := make([]types.Template, 0, len(ranked))
	for _, idx := range ranked {
		out = append(out, s.templates[idx])
	}
	return out, nil
}

func (s *Store) dropLocked(userID string, slot int) {
	kept := s.templates[:0]
	for _, t := range s.templates {
		if !(t.UserID == userID && t.Slot == slot) {
			kept = append(kept, t)
		}
	}
	s.templates = kept
}

// Update creates or overwrites the template in the user's slot. Slots outside
// 0-9 are rejected before any store access.
func (s *Store) Update(ctx context.Context, userID, rawSlot, url, deleteHash, name string, keywords []string, friendCodeColor, nameColor string) (*types.Template, error) {
	slot, err := ParseSlot(rawSlot)
	if err != nil {
		return nil, types.Err(types.ErrSlotOutOfRange, err, "")
	}
	if slot < slotMin || slot > slotMax {
		return nil, types.ErrSlotOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.dropLocked(userID, slot)

	t := types.Template{
		UserID:          userID,
		Slot:            slot,
		ID:              templateID(userID, slot),
		URL:             url,
		DeleteHash:      deleteHash,
		Name:            name,
		Keywords:        keywords,
		FriendCodeColor: friendCodeColor,
		NameColor:       nameColor,
		CreatedOn:       time.Now().Unix(),
	}
	if err := s.store.Set(ctx, types.CollTemplates, t.ID, t.Doc(), false); err != nil {
		return nil, err
	}
	s.templates = append(s.templates, t)

	out := t
	return &out, nil
}

// Delete removes the template in the user's slot, in memory and in the store.
func (s *Store) Delete(ctx context.Context, userID, rawSlot string) error {
	slot, err := ParseSlot(rawSlot)
	if err != nil {
		return types.Err(types.ErrSlotOutOfRange, err, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return err
	}

	s.dropLocked(userID, slot)

	id := templateID(userID, slot)
	doc, err := s.store.Get(ctx, types.CollTemplates, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return s.store.Delete(ctx, types.CollTemplates, id)
}
