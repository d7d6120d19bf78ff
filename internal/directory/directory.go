// Package directory orchestrates profile and bot records over the document
// store: cache-first reads, write-through updates, version bumps with opaque
// id regeneration, and throttle accounting.
//
// The old-mapping delete and new-mapping write around a version bump are not
// atomic with the record update. A crash between the steps leaves either a
// dangling mapping for a superseded version (stale, resolves like a cache
// miss) or a temporarily unreachable-by-id record. That gap is accepted, not
// repaired here; the mem/redis backends have no transaction to close it with.
package directory

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"profiledir/internal/cache"
	"profiledir/internal/ident"
	"profiledir/internal/ports"
	"profiledir/internal/throttle"
	"profiledir/internal/types"
)

type Directory struct {
	store ports.DocStore
	daily *throttle.Daily

	profiles *cache.Recency[*types.Profile]
	bots     *cache.Recency[*types.BotRecord]

	// locks serializes read-modify-write per logical key within this
	// process. Cross-process writers still race at the store.
	locks *keyedLocks
}

func New(store ports.DocStore, daily *throttle.Daily, cacheCapacity int) *Directory {
	return &Directory{
		store:    store,
		daily:    daily,
		profiles: cache.New[*types.Profile](cacheCapacity),
		bots:     cache.New[*types.BotRecord](cacheCapacity),
		locks:    newKeyedLocks(),
	}
}

// Profile returns the profile for a user, or nil when none exists. Cache hits
// cost nothing against the daily budget.
func (d *Directory) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	if p, ok := d.profiles.Find(userID, ""); ok {
		return p, nil
	}

	if err := d.daily.Take(); err != nil {
		return nil, err
	}

	doc, err := d.store.Get(ctx, types.CollProfiles, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	p := types.ProfileFromDoc(doc)
	p.ID = ident.Derive(userID, p.Version)
	d.profiles.Put(&p)
	return &p, nil
}

// ProfileByID resolves an opaque id through the ids collection and recurses
// into the key lookup.
func (d *Directory) ProfileByID(ctx context.Context, id string) (*types.Profile, error) {
	if p, ok := d.profiles.Find("", id); ok {
		return p, nil
	}

	if err := d.daily.Take(); err != nil {
		return nil, err
	}

	doc, err := d.store.Get(ctx, types.CollIDs, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	mapping := types.MappingFromDoc(doc)
	return d.Profile(ctx, mapping.UserID)
}

// CanUpdate reports whether the user's weekly update window still has room.
func (d *Directory) CanUpdate(ctx context.Context, userID string) (bool, error) {
	p, err := d.Profile(ctx, userID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return true, nil
	}
	return throttle.CanUpdate(p.RecentUpdates), nil
}

// UpdateProfile merges the change set into the stored profile, creating the
// record on first write. With bumpVersion the stored version increments, the
// old id mapping is deleted and a mapping for the regenerated id is written.
// Returns the record's opaque id, or "" for a no-op change set.
func (d *Directory) UpdateProfile(ctx context.Context, userID string, changes types.ProfileChanges, bumpVersion bool) (string, error) {
	if changes.IsEmpty() && !bumpVersion {
		return "", nil
	}

	release := d.locks.acquire(userID)
	defer release()

	// Budget check precedes every store mutation; exceeding it aborts with
	// no partial writes.
	if err := d.daily.Take(); err != nil {
		return "", err
	}

	doc, err := d.store.Get(ctx, types.CollProfiles, userID)
	if err != nil {
		return "", err
	}

	if doc == nil {
		return d.createProfile(ctx, userID, changes)
	}
	return d.mergeProfile(ctx, userID, types.ProfileFromDoc(doc), changes, bumpVersion)
}

func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func (d *Directory) createProfile(ctx context.Context, userID string, changes types.ProfileChanges) (string, error) {
	now := time.Now().Unix()
	p := types.Profile{
		UserID:         userID,
		FriendCode:     strOr(changes.FriendCode, ""),
		Name:           strOr(changes.Name, ""),
		Drip:           strOr(changes.Drip, types.NoValue),
		DripDeleteHash: strOr(changes.DripDeleteHash, types.NoValue),
		Template:       strOr(changes.Template, types.DefaultTemplate),
		Card:           strOr(changes.Card, types.NoValue),
		CardDeleteHash: strOr(changes.CardDeleteHash, types.NoValue),
		RecentUpdates:  []string{},
		CreatedOn:      now,
		UpdatedOn:      now,
		Version:        1,
	}
	if err := d.store.Set(ctx, types.CollProfiles, userID, p.Doc(), false); err != nil {
		return "", err
	}

	id := ident.Derive(userID, 1)
	mapping := types.IDMapping{UserID: userID, Version: 1}
	if err := d.store.Set(ctx, types.CollIDs, id, mapping.Doc(), false); err != nil {
		return "", err
	}

	p.ID = id
	d.profiles.Put(&p)
	return id, nil
}

func (d *Directory) mergeProfile(ctx context.Context, userID string, data types.Profile, changes types.ProfileChanges, bumpVersion bool) (string, error) {
	newData := types.Document{}
	countIt := false

	if changes.FriendCode != nil {
		data.FriendCode = *changes.FriendCode
		newData["friendCode"] = data.FriendCode
		countIt = true
	}
	if changes.Name != nil {
		data.Name = *changes.Name
		newData["name"] = data.Name
		countIt = true
	}
	if changes.Drip != nil {
		// managed by upload attempt, does not count on its own
		data.Drip = *changes.Drip
		newData["drip"] = data.Drip
	}
	if changes.DripDeleteHash != nil {
		data.DripDeleteHash = *changes.DripDeleteHash
		newData["dripDeleteHash"] = data.DripDeleteHash
	}
	if changes.Template != nil {
		data.Template = *changes.Template
		newData["template"] = data.Template
		countIt = true
	}
	if changes.Card != nil {
		data.Card = *changes.Card
		newData["card"] = data.Card
	}
	if changes.CardDeleteHash != nil {
		data.CardDeleteHash = *changes.CardDeleteHash
		newData["cardDeleteHash"] = data.CardDeleteHash
	}

	id := ident.Derive(userID, data.Version)

	if bumpVersion {
		data.Version++
		newData["version"] = data.Version

		if err := d.deleteMapping(ctx, id); err != nil {
			return "", err
		}

		countIt = true
		id = ident.Derive(userID, data.Version)
	}

	if changes.UploadAttempt || countIt {
		data.RecentUpdates = throttle.AppendUpdate(data.RecentUpdates)
		newData["recentUpdates"] = data.RecentUpdates
	}

	now := time.Now().Unix()
	data.UpdatedOn = now
	newData["updatedOn"] = now

	if err := d.store.Set(ctx, types.CollProfiles, userID, newData, true); err != nil {
		return "", err
	}

	mapping := types.IDMapping{UserID: userID, Version: data.Version}
	if err := d.store.Set(ctx, types.CollIDs, id, mapping.Doc(), false); err != nil {
		return "", err
	}

	// Cached structs are never mutated once inserted; readers holding a
	// pointer keep an immutable snapshot. A write swaps in a fresh entry.
	d.profiles.Remove(userID, "")
	data.ID = id
	d.profiles.Put(&data)

	return id, nil
}

// RemoveProfile deletes the profile document, its id mapping and the cache
// entry. Removing an absent profile is a no-op.
func (d *Directory) RemoveProfile(ctx context.Context, userID string) error {
	release := d.locks.acquire(userID)
	defer release()

	d.profiles.Remove(userID, "")

	doc, err := d.store.Get(ctx, types.CollProfiles, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	id := ident.Derive(userID, types.I64(doc, "version"))
	if err := d.deleteMapping(ctx, id); err != nil {
		return err
	}
	return d.store.Delete(ctx, types.CollProfiles, userID)
}

// deleteMapping removes an ids entry if present. The read-then-delete pair is
// deliberately not atomic; see the package comment.
func (d *Directory) deleteMapping(ctx context.Context, id string) error {
	doc, err := d.store.Get(ctx, types.CollIDs, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := d.store.Delete(ctx, types.CollIDs, id); err != nil {
		log.WithError(err).WithField("id", id).Error("failed to delete stale id mapping")
		return err
	}
	return nil
}
