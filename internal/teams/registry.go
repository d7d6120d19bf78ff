// Package teams enforces the tournament-team invariants over the team
// collection: a member belongs to at most one team at a time, and only the
// recorded captain may change a team's composition, name or category.
//
// Validation and commit are separate store operations; another writer can
// change a member's team between them. Best effort, not serializable.
package teams

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"profiledir/internal/ports"
	"profiledir/internal/throttle"
	"profiledir/internal/types"
)

const noName = "[No Name]"

type Registry struct {
	store     ports.DocStore
	daily     *throttle.Daily
	notifier  ports.TeamNotifier
	endpoints *EndpointStore
	flags     types.TournamentSettings

	// settle paces every team-mutating call before it returns, smoothing
	// store replication lag.
	settle time.Duration
}

func NewRegistry(store ports.DocStore, daily *throttle.Daily, notifier ports.TeamNotifier, endpoints *EndpointStore, settings types.Settings) *Registry {
	return &Registry{
		store:     store,
		daily:     daily,
		notifier:  notifier,
		endpoints: endpoints,
		flags:     settings.Tournament,
		settle:    settings.SettleDelay(),
	}
}

// SetSettleDelay overrides the pacing delay. Tests only.
func (r *Registry) SetSettleDelay(d time.Duration) {
	r.settle = d
}

// SanitizeTournament maps arbitrary input onto a known category, defaulting
// to competitive.
func SanitizeTournament(tournament string) string {
	switch tournament {
	case types.TournamentCasual:
		return types.TournamentCasual
	case types.TournamentCompetitive:
		return types.TournamentCompetitive
	default:
		return types.TournamentCompetitive
	}
}

func (r *Registry) memberTeams(ctx context.Context, userID string) ([]ports.Doc, error) {
	return r.store.Query(ctx, types.CollTeams, "team", ports.ArrayContains, userID)
}

// Team returns the team the user is on, or nil. More than one match is a
// data-integrity anomaly and reads as absent, like the original directory.
func (r *Registry) Team(ctx context.Context, userID string) (*types.Team, error) {
	if err := r.daily.Take(); err != nil {
		return nil, err
	}
	docs, err := r.memberTeams(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, nil
	}
	t := types.TeamFromDoc(docs[0].Key, docs[0].Fields)
	return &t, nil
}

// All lists every team, optionally restricted to one tournament category.
func (r *Registry) All(ctx context.Context, tournament string) ([]types.Team, error) {
	var docs []ports.Doc
	var err error
	if tournament != "" {
		docs, err = r.store.Query(ctx, types.CollTeams, "tournament", ports.Equals, tournament)
	} else {
		docs, err = r.store.All(ctx, types.CollTeams)
	}
	if err != nil {
		return nil, err
	}
	out := make([]types.Team, 0, len(docs))
	for _, doc := range docs {
		out = append(out, types.TeamFromDoc(doc.Key, doc.Fields))
	}
	return out, nil
}

// IsFree reports whether the user is on no team at all.
func (r *Registry) IsFree(ctx context.Context, userID string) (bool, error) {
	docs, err := r.memberTeams(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(docs) == 0, nil
}

// ValidateRoster enforces membership exclusivity for every proposed member:
// a member already on a team under a different captain, or on more than one
// team record, fails the whole roster with an error naming that member. Runs
// before any write.
func (r *Registry) ValidateRoster(ctx context.Context, captain string, roster []string) error {
	if captain == "" || len(roster) == 0 {
		return types.ErrInvalidRoster
	}

	if r.flags.RejectDuplicateMembers {
		seen := make(map[string]bool, len(roster))
		for _, member := range roster {
			if seen[member] {
				return types.Err(types.ErrInvalidRoster, nil, "user %s is listed twice", member)
			}
			seen[member] = true
		}
	}

	for _, member := range roster {
		docs, err := r.memberTeams(ctx, member)
		if err != nil {
			return err
		}
		switch {
		case len(docs) == 1:
			if types.Str(docs[0].Fields, "captain") != captain {
				return &types.MemberTakenError{Member: member}
			}
		case len(docs) > 1:
			// data-integrity anomaly, reject all the same
			return &types.MemberTakenError{Member: member}
		}
	}
	return nil
}

// Save creates the caller's team or, when the caller is already on one,
// treats the call as a captain-gated edit request. Empty roster/name/
// tournament mean "leave unchanged" on the edit path.
func (r *Registry) Save(ctx context.Context, userID string, roster []string, captain, name, tournament string) error {
	if !r.flags.Active {
		return types.Err(types.ErrFeatureDisabled, nil, "the tournament is offline")
	}

	docs, err := r.memberTeams(ctx, userID)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		return r.create(ctx, roster, captain, name, tournament)
	}
	if len(docs) > 1 {
		return types.ErrMultipleTeams
	}
	return r.edit(ctx, docs[0], roster, captain, name, tournament)
}

func (r *Registry) create(ctx context.Context, roster []string, captain, name, tournament string) error {
	if !r.flags.AddTeam {
		return types.Err(types.ErrFeatureDisabled, nil, "new teams cannot be added")
	}

	if name == "" {
		name = noName
	}
	name = truncateName(name)
	tournament = SanitizeTournament(tournament)

	if err := r.ValidateRoster(ctx, captain, roster); err != nil {
		return err
	}

	now := time.Now().Unix()
	team := types.Team{
		Key:        uuid.NewString(),
		Roster:     roster,
		Captain:    captain,
		Name:       name,
		Tournament: tournament,
		CreatedOn:  now,
		UpdatedOn:  now,
	}
	if err := r.store.Set(ctx, types.CollTeams, team.Key, team.Doc(), false); err != nil {
		return err
	}

	r.notifyAll(ctx, team.Snapshot(), eventCreated)
	r.pace()
	return nil
}

func (r *Registry) edit(ctx context.Context, doc ports.Doc, roster []string, captain, name, tournament string) error {
	data := types.TeamFromDoc(doc.Key, doc.Fields)

	if data.Captain != captain {
		return types.ErrNotCaptain
	}

	newData := types.Document{}
	somethingChanged := false

	if roster != nil {
		if !r.flags.EditTeamMembers {
			return types.Err(types.ErrFeatureDisabled, nil, "team member editing is disabled")
		}
		if err := r.ValidateRoster(ctx, captain, roster); err != nil {
			return err
		}
		data.Roster = roster
		newData["team"] = roster
		somethingChanged = true
	}

	if name != "" {
		if !r.flags.ChangeTeamName {
			return types.Err(types.ErrFeatureDisabled, nil, "team name changes are disabled")
		}
		name = truncateName(name)
		data.Name = name
		newData["name"] = name
		somethingChanged = true
	}

	if tournament != "" {
		if !r.flags.ChangeTournament {
			return types.Err(types.ErrFeatureDisabled, nil, "tournament changes are disabled")
		}
		tournament = SanitizeTournament(tournament)
		data.Tournament = tournament
		newData["tournament"] = tournament
		somethingChanged = true
	}

	if somethingChanged {
		newData["updatedOn"] = time.Now().Unix()
		if err := r.store.Set(ctx, types.CollTeams, data.Key, newData, true); err != nil {
			return err
		}
		r.notifyAll(ctx, data.Snapshot(), eventUpdated)
	}

	r.pace()
	return nil
}

// Leave removes the member from whichever teams contain them. The invariant
// forbids more than one, but stale data is handled defensively.
func (r *Registry) Leave(ctx context.Context, userID string) error {
	if !r.flags.Active || !r.flags.LeaveTeam {
		return types.Err(types.ErrFeatureDisabled, nil, "tournament team leaving is not allowed")
	}

	docs, err := r.memberTeams(ctx, userID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		data := types.TeamFromDoc(doc.Key, doc.Fields)
		for i, member := range data.Roster {
			if member == userID {
				data.Roster = append(data.Roster[:i], data.Roster[i+1:]...)
				break
			}
		}
		if err := r.store.Set(ctx, types.CollTeams, data.Key, types.Document{"team": data.Roster}, true); err != nil {
			return err
		}
	}

	r.pace()
	return nil
}

// Dissolve deletes every team captained by the caller and notifies endpoints
// with each team's pre-deletion snapshot.
func (r *Registry) Dissolve(ctx context.Context, captain string) error {
	if !r.flags.Active || !r.flags.DeleteTeam {
		return types.Err(types.ErrFeatureDisabled, nil, "tournament signups are closed")
	}

	docs, err := r.store.Query(ctx, types.CollTeams, "captain", ports.Equals, captain)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		snap := types.TeamFromDoc(doc.Key, doc.Fields).Snapshot()
		if err := r.store.Delete(ctx, types.CollTeams, doc.Key); err != nil {
			return err
		}
		r.notifyAll(ctx, snap, eventDeleted)
	}

	r.pace()
	return nil
}

type teamEvent int

const (
	eventCreated teamEvent = iota
	eventUpdated
	eventDeleted
)

// notifyAll delivers the snapshot to every registered endpoint, sequentially
// and best-effort. A failed endpoint is logged and skipped.
func (r *Registry) notifyAll(ctx context.Context, snap types.TeamSnapshot, event teamEvent) {
	endpoints, err := r.endpoints.All(ctx)
	if err != nil {
		log.WithError(err).Error("failed to load webhook endpoints")
		return
	}
	for _, ep := range endpoints {
		var err error
		switch event {
		case eventCreated:
			err = r.notifier.TeamCreated(ctx, ep, snap)
		case eventUpdated:
			err = r.notifier.TeamUpdated(ctx, ep, snap)
		case eventDeleted:
			err = r.notifier.TeamDeleted(ctx, ep, snap)
		}
		if err != nil {
			log.WithError(err).WithField("endpoint", ep.URL).Warn("webhook delivery failed")
		}
	}
}

func (r *Registry) pace() {
	if r.settle > 0 {
		time.Sleep(r.settle)
	}
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > types.TeamNameMaxLen {
		return string(runes[:types.TeamNameMaxLen])
	}
	return name
}
