package types

// Document is the loose field map exchanged with the document store port.
// Numeric values may arrive as float64 (JSON) or int64 (DynamoDB); the
// accessors below absorb that.
type Document = map[string]any

func Str(d Document, key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func I64(d Document, key string) int64 {
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func Bool(d Document, key string) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return false
}

func StrSlice(d Document, key string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func ProfileFromDoc(d Document) Profile {
	return Profile{
		UserID:         Str(d, "userId"),
		FriendCode:     Str(d, "friendCode"),
		Name:           Str(d, "name"),
		Drip:           Str(d, "drip"),
		DripDeleteHash: Str(d, "dripDeleteHash"),
		Template:       Str(d, "template"),
		Card:           Str(d, "card"),
		CardDeleteHash: Str(d, "cardDeleteHash"),
		RecentUpdates:  StrSlice(d, "recentUpdates"),
		CreatedOn:      I64(d, "createdOn"),
		UpdatedOn:      I64(d, "updatedOn"),
		Version:        I64(d, "version"),
	}
}

func (p Profile) Doc() Document {
	return Document{
		"userId":         p.UserID,
		"friendCode":     p.FriendCode,
		"name":           p.Name,
		"drip":           p.Drip,
		"dripDeleteHash": p.DripDeleteHash,
		"template":       p.Template,
		"card":           p.Card,
		"cardDeleteHash": p.CardDeleteHash,
		"recentUpdates":  p.RecentUpdates,
		"createdOn":      p.CreatedOn,
		"updatedOn":      p.UpdatedOn,
		"version":        p.Version,
	}
}

func BotFromDoc(d Document) BotRecord {
	return BotRecord{
		UserID:         Str(d, "userId"),
		GetProfile:     Bool(d, "getProfile"),
		SaveFriendCode: Bool(d, "saveFriendCode"),
		SaveUsername:   Bool(d, "saveUsername"),
		SaveDrip:       Bool(d, "saveDrip"),
		DeleteProfile:  Bool(d, "deleteProfile"),
		TeamQuery:      Bool(d, "teamQuery"),
		TeamWebhook:    Bool(d, "teamWebhook"),
		NoBot:          Bool(d, "nobot"),
		CreatedOn:      I64(d, "createdOn"),
		UpdatedOn:      I64(d, "updatedOn"),
		Version:        I64(d, "version"),
	}
}

func (b BotRecord) Doc() Document {
	return Document{
		"userId":         b.UserID,
		"getProfile":     b.GetProfile,
		"saveFriendCode": b.SaveFriendCode,
		"saveUsername":   b.SaveUsername,
		"saveDrip":       b.SaveDrip,
		"deleteProfile":  b.DeleteProfile,
		"teamQuery":      b.TeamQuery,
		"teamWebhook":    b.TeamWebhook,
		"nobot":          b.NoBot,
		"createdOn":      b.CreatedOn,
		"updatedOn":      b.UpdatedOn,
		"version":        b.Version,
	}
}

func MappingFromDoc(d Document) IDMapping {
	return IDMapping{
		UserID:  Str(d, "userId"),
		Version: I64(d, "version"),
		Type:    Str(d, "type"),
	}
}

func (m IDMapping) Doc() Document {
	d := Document{
		"userId":  m.UserID,
		"version": m.Version,
	}
	if m.Type != "" {
		d["type"] = m.Type
	}
	return d
}

func TeamFromDoc(key string, d Document) Team {
	return Team{
		Key:        key,
		Roster:     StrSlice(d, "team"),
		Captain:    Str(d, "captain"),
		Name:       Str(d, "name"),
		Tournament: Str(d, "tournament"),
		CreatedOn:  I64(d, "createdOn"),
		UpdatedOn:  I64(d, "updatedOn"),
	}
}

func (t Team) Doc() Document {
	return Document{
		"team":       t.Roster,
		"captain":    t.Captain,
		"name":       t.Name,
		"tournament": t.Tournament,
		"createdOn":  t.CreatedOn,
		"updatedOn":  t.UpdatedOn,
	}
}

func EndpointFromDoc(d Document) WebhookEndpoint {
	return WebhookEndpoint{
		UserID: Str(d, "userId"),
		URL:    Str(d, "url"),
		Filter: Str(d, "filter"),
	}
}

func (w WebhookEndpoint) Doc() Document {
	d := Document{
		"userId": w.UserID,
		"url":    w.URL,
	}
	if w.Filter != "" {
		d["filter"] = w.Filter
	}
	return d
}

func TemplateFromDoc(d Document) Template {
	return Template{
		UserID:          Str(d, "userId"),
		Slot:            int(I64(d, "slot")),
		ID:              Str(d, "id"),
		URL:             Str(d, "url"),
		DeleteHash:      Str(d, "deleteHash"),
		Name:            Str(d, "name"),
		Keywords:        StrSlice(d, "keywords"),
		FriendCodeColor: Str(d, "color_friendcode"),
		NameColor:       Str(d, "color_name"),
		CreatedOn:       I64(d, "createdOn"),
	}
}

func (t Template) Doc() Document {
	return Document{
		"userId":           t.UserID,
		"slot":             t.Slot,
		"id":               t.ID,
		"url":              t.URL,
		"deleteHash":       t.DeleteHash,
		"name":             t.Name,
		"keywords":         t.Keywords,
		"color_friendcode": t.FriendCodeColor,
		"color_name":       t.NameColor,
		"createdOn":        t.CreatedOn,
	}
}
