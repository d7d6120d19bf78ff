package directory

import (
	"context"
	"time"

	"profiledir/internal/ident"
	"profiledir/internal/types"
)

// BotByKey returns the bot record for a user. A record with the nobot flag
// set reads as absent even when the document exists.
func (d *Directory) BotByKey(ctx context.Context, userID string) (*types.BotRecord, error) {
	if b, ok := d.bots.Find(userID, ""); ok {
		if b.NoBot {
			return nil, nil
		}
		return b, nil
	}

	if err := d.daily.Take(); err != nil {
		return nil, err
	}

	doc, err := d.store.Get(ctx, types.CollBots, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	b := types.BotFromDoc(doc)
	b.ID = ident.Derive(ident.BotKey(userID), b.Version)
	d.bots.Put(&b)

	if b.NoBot {
		return nil, nil
	}
	return &b, nil
}

// Bot resolves a bot record by its opaque id.
func (d *Directory) Bot(ctx context.Context, id string) (*types.BotRecord, error) {
	if b, ok := d.bots.Find("", id); ok {
		if b.NoBot {
			return nil, nil
		}
		return b, nil
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
	return d.BotByKey(ctx, mapping.UserID)
}

// AllBots lists every bot record, suppressed ones included. Administrative
// surface, bypasses the cache.
func (d *Directory) AllBots(ctx context.Context) ([]types.BotRecord, error) {
	docs, err := d.store.All(ctx, types.CollBots)
	if err != nil {
		return nil, err
	}
	out := make([]types.BotRecord, 0, len(docs))
	for _, doc := range docs {
		b := types.BotFromDoc(doc.Fields)
		b.ID = ident.Derive(ident.BotKey(b.UserID), b.Version)
		out = append(out, b)
	}
	return out, nil
}

// SaveBot merges the change set into the user's bot record, creating it on
// first write. Flags present in the change set are stored exactly as given;
// absent flags stay untouched server-side. A suppressed record refuses edits
// unless the change set addresses the nobot flag itself.
func (d *Directory) SaveBot(ctx context.Context, userID string, changes types.BotChanges, bumpVersion bool) (string, error) {
	if changes.IsEmpty() && !bumpVersion {
		return "", nil
	}

	release := d.locks.acquire(ident.BotKey(userID))
	defer release()

	if err := d.daily.Take(); err != nil {
		return "", err
	}

	doc, err := d.store.Get(ctx, types.CollBots, userID)
	if err != nil {
		return "", err
	}

	if doc == nil {
		return d.createBot(ctx, userID, changes)
	}

	data := types.BotFromDoc(doc)
	if data.NoBot && changes.NoBot == nil {
		return "", nil
	}
	return d.mergeBot(ctx, userID, data, changes, bumpVersion)
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

func (d *Directory) createBot(ctx context.Context, userID string, changes types.BotChanges) (string, error) {
	now := time.Now().Unix()
	b := types.BotRecord{
		UserID:         userID,
		GetProfile:     boolOr(changes.GetProfile, false),
		SaveFriendCode: boolOr(changes.SaveFriendCode, false),
		SaveUsername:   boolOr(changes.SaveUsername, false),
		SaveDrip:       boolOr(changes.SaveDrip, false),
		DeleteProfile:  boolOr(changes.DeleteProfile, false),
		TeamQuery:      boolOr(changes.TeamQuery, false),
		TeamWebhook:    boolOr(changes.TeamWebhook, false),
		NoBot:          boolOr(changes.NoBot, false),
		CreatedOn:      now,
		UpdatedOn:      now,
		Version:        1,
	}
	if err := d.store.Set(ctx, types.CollBots, userID, b.Doc(), false); err != nil {
		return "", err
	}

	id := ident.Derive(ident.BotKey(userID), 1)
	mapping := types.IDMapping{UserID: userID, Version: 1, Type: "bot"}
	if err := d.store.Set(ctx, types.CollIDs, id, mapping.Doc(), false); err != nil {
		return "", err
	}

	b.ID = id
	d.bots.Put(&b)
	return id, nil
}

func (d *Directory) mergeBot(ctx context.Context, userID string, data types.BotRecord, changes types.BotChanges, bumpVersion bool) (string, error) {
	newData := types.Document{}

	apply := func(p *bool, field string, dst *bool) {
		if p != nil {
			*dst = *p
			newData[field] = *p
		}
	}
	apply(changes.GetProfile, "getProfile", &data.GetProfile)
	apply(changes.SaveFriendCode, "saveFriendCode", &data.SaveFriendCode)
	apply(changes.SaveUsername, "saveUsername", &data.SaveUsername)
	apply(changes.SaveDrip, "saveDrip", &data.SaveDrip)
	apply(changes.DeleteProfile, "deleteProfile", &data.DeleteProfile)
	apply(changes.TeamQuery, "teamQuery", &data.TeamQuery)
	apply(changes.TeamWebhook, "teamWebhook", &data.TeamWebhook)
	apply(changes.NoBot, "nobot", &data.NoBot)

	id := ident.Derive(ident.BotKey(userID), data.Version)

	if bumpVersion {
		data.Version++
		newData["version"] = data.Version

		if err := d.deleteMapping(ctx, id); err != nil {
			return "", err
		}

		id = ident.Derive(ident.BotKey(userID), data.Version)
	}

	now := time.Now().Unix()
	data.UpdatedOn = now
	newData["updatedOn"] = now

	if err := d.store.Set(ctx, types.CollBots, userID, newData, true); err != nil {
		return "", err
	}

	mapping := types.IDMapping{UserID: userID, Version: data.Version, Type: "bot"}
	if err := d.store.Set(ctx, types.CollIDs, id, mapping.Doc(), false); err != nil {
		return "", err
	}

	// same snapshot discipline as mergeProfile: never mutate a cached struct
	d.bots.Remove(userID, "")
	data.ID = id
	d.bots.Put(&data)

	return id, nil
}
