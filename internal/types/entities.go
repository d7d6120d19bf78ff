package types

// Collection names in the backing document store.
const (
	CollProfiles  = "profiles"
	CollBots      = "bots"
	CollIDs       = "ids"
	CollTeams     = "tournamentteams"
	CollWebhooks  = "teamwebhooks"
	CollTemplates = "templates"
)

const (
	// NoValue marks an unset asset reference on a profile.
	NoValue = "NONE"
	// DefaultTemplate is assigned to newly created profiles.
	DefaultTemplate = "s3-yellow-indigo"
	// UpdateLimit caps the recentUpdates window on a profile.
	UpdateLimit = 100
	// TeamNameMaxLen is the truncation point for team display names.
	TeamNameMaxLen = 20
)

// Profile is the per-user profile record. Version starts at 1 and increases by
// exactly 1 on any version-triggering change. RecentUpdates holds week-start
// dates for the last UpdateLimit throttled updates, oldest first.
type Profile struct {
	UserID         string   `json:"userId" dynamodbav:"userId"`
	FriendCode     string   `json:"friendCode" dynamodbav:"friendCode"`
	Name           string   `json:"name" dynamodbav:"name"`
	Drip           string   `json:"drip" dynamodbav:"drip"`
	DripDeleteHash string   `json:"dripDeleteHash" dynamodbav:"dripDeleteHash"`
	Template       string   `json:"template" dynamodbav:"template"`
	Card           string   `json:"card" dynamodbav:"card"`
	CardDeleteHash string   `json:"cardDeleteHash" dynamodbav:"cardDeleteHash"`
	RecentUpdates  []string `json:"recentUpdates" dynamodbav:"recentUpdates"`
	CreatedOn      int64    `json:"createdOn" dynamodbav:"createdOn"`
	UpdatedOn      int64    `json:"updatedOn" dynamodbav:"updatedOn"`
	Version        int64    `json:"version" dynamodbav:"version"`
	// ID is the opaque id derived from (UserID, Version); not persisted with
	// the profile document, only with the ids collection.
	ID string `json:"id" dynamodbav:"-"`
}

// Cache addressing. Profiles and bot records are cached as pointers; a cached
// struct is immutable once inserted, so a handed-out pointer stays a safe
// snapshot while later writes replace the entry.
func (p *Profile) LogicalKey() string { return p.UserID }
func (p *Profile) OpaqueID() string   { return p.ID }

// BotRecord tracks a linked bot's capability grants for one user. A record
// with NoBot set reads as absent everywhere.
type BotRecord struct {
	UserID         string `json:"userId" dynamodbav:"userId"`
	GetProfile     bool   `json:"getProfile" dynamodbav:"getProfile"`
	SaveFriendCode bool   `json:"saveFriendCode" dynamodbav:"saveFriendCode"`
	SaveUsername   bool   `json:"saveUsername" dynamodbav:"saveUsername"`
	SaveDrip       bool   `json:"saveDrip" dynamodbav:"saveDrip"`
	DeleteProfile  bool   `json:"deleteProfile" dynamodbav:"deleteProfile"`
	TeamQuery      bool   `json:"teamQuery" dynamodbav:"teamQuery"`
	TeamWebhook    bool   `json:"teamWebhook" dynamodbav:"teamWebhook"`
	NoBot          bool   `json:"nobot" dynamodbav:"nobot"`
	CreatedOn      int64  `json:"createdOn" dynamodbav:"createdOn"`
	UpdatedOn      int64  `json:"updatedOn" dynamodbav:"updatedOn"`
	Version        int64  `json:"version" dynamodbav:"version"`
	ID             string `json:"id" dynamodbav:"-"`
}

func (b *BotRecord) LogicalKey() string { return b.UserID }
func (b *BotRecord) OpaqueID() string   { return b.ID }

// IDMapping is the reverse index entry for one opaque id. Type is "bot" for
// bot records and empty for profiles.
type IDMapping struct {
	UserID  string `json:"userId" dynamodbav:"userId"`
	Version int64  `json:"version" dynamodbav:"version"`
	Type    string `json:"type,omitempty" dynamodbav:"type"`
}

// Tournament categories. Anything unrecognized sanitizes to competitive.
const (
	TournamentCasual      = "casual"
	TournamentCompetitive = "competitive"
)

// Team is one tournament team document. Key is the store document key
// (generated at creation). Roster order is preserved; uniqueness within a
// roster is not structurally enforced.
type Team struct {
	Key        string   `json:"-" dynamodbav:"-"`
	Roster     []string `json:"team" dynamodbav:"team"`
	Captain    string   `json:"captain" dynamodbav:"captain"`
	Name       string   `json:"name" dynamodbav:"name"`
	Tournament string   `json:"tournament" dynamodbav:"tournament"`
	CreatedOn  int64    `json:"createdOn" dynamodbav:"createdOn"`
	UpdatedOn  int64    `json:"updatedOn" dynamodbav:"updatedOn"`
}

// TeamSnapshot is the payload shape delivered to webhook endpoints.
type TeamSnapshot struct {
	Roster  []string `json:"team"`
	Captain string   `json:"captain"`
	Name    string   `json:"name"`
}

func (t Team) Snapshot() TeamSnapshot {
	return TeamSnapshot{Roster: t.Roster, Captain: t.Captain, Name: t.Name}
}

// WebhookEndpoint registers one outbound notification destination. Filter is
// an optional JMESPath expression over the event payload; empty means always
// deliver.
type WebhookEndpoint struct {
	UserID string `json:"userId" dynamodbav:"userId"`
	URL    string `json:"url" dynamodbav:"url"`
	Filter string `json:"filter,omitempty" dynamodbav:"filter"`
}

// Template is one profile-card template in a user's slot (0-9).
type Template struct {
	UserID          string   `json:"userId" dynamodbav:"userId"`
	Slot            int      `json:"slot" dynamodbav:"slot"`
	ID              string   `json:"id" dynamodbav:"id"`
	URL             string   `json:"url" dynamodbav:"url"`
	DeleteHash      string   `json:"deleteHash" dynamodbav:"deleteHash"`
	Name            string   `json:"name" dynamodbav:"name"`
	Keywords        []string `json:"keywords" dynamodbav:"keywords"`
	FriendCodeColor string   `json:"color_friendcode" dynamodbav:"color_friendcode"`
	NameColor       string   `json:"color_name" dynamodbav:"color_name"`
	CreatedOn       int64    `json:"createdOn" dynamodbav:"createdOn"`
}
