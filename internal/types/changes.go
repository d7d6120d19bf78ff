package types

// ProfileChanges is an explicit change set for a profile update. A nil field
// is absent: the stored value is left untouched. UploadAttempt marks the
// update as counting toward the weekly window even when no counted field
// changed.
type ProfileChanges struct {
	FriendCode     *string `json:"friendCode,omitempty"`
	Name           *string `json:"name,omitempty"`
	Drip           *string `json:"drip,omitempty"`
	DripDeleteHash *string `json:"dripDeleteHash,omitempty"`
	Template       *string `json:"template,omitempty"`
	Card           *string `json:"card,omitempty"`
	CardDeleteHash *string `json:"cardDeleteHash,omitempty"`
	UploadAttempt  bool    `json:"uploadAttempt,omitempty"`
}

// IsEmpty reports whether the change set carries no recognized mutable field.
func (c ProfileChanges) IsEmpty() bool {
	return c.FriendCode == nil &&
		c.Name == nil &&
		c.Drip == nil &&
		c.DripDeleteHash == nil &&
		c.Template == nil &&
		c.Card == nil &&
		c.CardDeleteHash == nil &&
		!c.UploadAttempt
}

// BotChanges is an explicit change set for a bot record. Present-but-false
// flags are stored as false, never skipped.
type BotChanges struct {
	GetProfile     *bool `json:"getProfile,omitempty"`
	SaveFriendCode *bool `json:"saveFriendCode,omitempty"`
	SaveUsername   *bool `json:"saveUsername,omitempty"`
	SaveDrip       *bool `json:"saveDrip,omitempty"`
	DeleteProfile  *bool `json:"deleteProfile,omitempty"`
	TeamQuery      *bool `json:"teamQuery,omitempty"`
	TeamWebhook    *bool `json:"teamWebhook,omitempty"`
	NoBot          *bool `json:"nobot,omitempty"`
}

func (c BotChanges) IsEmpty() bool {
	return c.GetProfile == nil &&
		c.SaveFriendCode == nil &&
		c.SaveUsername == nil &&
		c.SaveDrip == nil &&
		c.DeleteProfile == nil &&
		c.TeamQuery == nil &&
		c.TeamWebhook == nil &&
		c.NoBot == nil
}
