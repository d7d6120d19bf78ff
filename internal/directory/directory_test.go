package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"profiledir/internal/backends/mem"
	"profiledir/internal/ident"
	"profiledir/internal/throttle"
	"profiledir/internal/types"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type DirectorySuite struct {
	suite.Suite

	store *mem.Store
	daily *throttle.Daily
	dir   *Directory
	ctx   context.Context
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	throttle.SetTimeNowFn(func() time.Time {
		return time.Date(2025, 3, 12, 15, 0, 0, 0, time.Local)
	})
	s.store = mem.NewStore()
	s.daily = throttle.NewDaily(0)
	s.dir = New(s.store, s.daily, 0)
	s.ctx = context.Background()
}

func (s *DirectorySuite) TearDownTest() {
	throttle.RestoreTimeNow()
}

func (s *DirectorySuite) TestNewProfile() {
	id, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
		Template:   strPtr("s3-yellow-indigo"),
	}, false)
	s.NoError(err)
	s.NotEmpty(id)
	s.Equal(ident.Derive("user1", 1), id)

	p, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Require().NotNil(p)
	s.Equal(int64(1), p.Version)
	s.Equal("SW-1234", p.FriendCode)
	s.Equal("s3-yellow-indigo", p.Template)
	s.Empty(p.RecentUpdates)
	s.Equal(types.NoValue, p.Drip)
	s.Equal(id, p.ID)

	// the new record is cached: the read above cost no store op
	before := s.store.Ops()
	again, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Same(p, again)
	s.Equal(before, s.store.Ops())
}

func (s *DirectorySuite) TestEmptyChangeSetIsNoop() {
	id, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{}, false)
	s.NoError(err)
	s.Empty(id)
	s.Equal(int64(0), s.store.Ops())
}

func (s *DirectorySuite) TestMergeLeavesAbsentFieldsUntouched() {
	_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
		Name:       strPtr("ink"),
	}, false)
	s.NoError(err)

	_, err = s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("splat"),
	}, false)
	s.NoError(err)

	doc, err := s.store.Get(s.ctx, types.CollProfiles, "user1")
	s.NoError(err)
	s.Equal("SW-1234", types.Str(doc, "friendCode"))
	s.Equal("splat", types.Str(doc, "name"))

	p, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Equal("SW-1234", p.FriendCode)
	s.Equal("splat", p.Name)
}

func (s *DirectorySuite) TestVersionBumpRegeneratesID() {
	oldID, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
	}, false)
	s.NoError(err)

	newID, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("ink"),
	}, true)
	s.NoError(err)
	s.NotEqual(oldID, newID)
	s.Equal(ident.Derive("user1", 2), newID)

	// old mapping deleted, exactly one current mapping
	oldDoc, err := s.store.Get(s.ctx, types.CollIDs, oldID)
	s.NoError(err)
	s.Nil(oldDoc)
	s.Equal(1, s.store.Len(types.CollIDs))

	p, err := s.dir.ProfileByID(s.ctx, newID)
	s.NoError(err)
	s.Require().NotNil(p)
	s.Equal(int64(2), p.Version)

	stale, err := s.dir.ProfileByID(s.ctx, oldID)
	s.NoError(err)
	s.Nil(stale)
}

func (s *DirectorySuite) TestCountedFieldsAppendWeekStart() {
	_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
	}, false)
	s.NoError(err)

	// drip alone is managed by upload attempts and does not count
	_, err = s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Drip: strPtr("http://example.com/a.png"),
	}, false)
	s.NoError(err)
	p, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Empty(p.RecentUpdates)

	// a counted field appends the current week start
	_, err = s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("ink"),
	}, false)
	s.NoError(err)
	p, err = s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Equal([]string{throttle.WeekStart()}, p.RecentUpdates)

	// so does a bare upload attempt
	_, err = s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		UploadAttempt: true,
	}, false)
	s.NoError(err)
	p, err = s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Len(p.RecentUpdates, 2)
}

func (s *DirectorySuite) TestWeeklyWindowSaturates() {
	_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-0"),
	}, false)
	s.NoError(err)

	for i := 0; i < types.UpdateLimit; i++ {
		_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
			UploadAttempt: true,
		}, false)
		s.NoError(err)
	}

	ok, err := s.dir.CanUpdate(s.ctx, "user1")
	s.NoError(err)
	s.False(ok)

	// next week the window reopens
	throttle.SetTimeNowFn(func() time.Time {
		return time.Date(2025, 3, 19, 15, 0, 0, 0, time.Local)
	})
	ok, err = s.dir.CanUpdate(s.ctx, "user1")
	s.NoError(err)
	s.True(ok)
}

func (s *DirectorySuite) TestDailyBudgetAbortsBeforeWrites() {
	daily := throttle.NewDaily(1)
	dir := New(s.store, daily, 0)
	s.NoError(daily.Take())

	_, err := dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
	}, false)
	s.ErrorIs(err, types.ErrDailyBudget)
	s.Equal(int64(0), s.store.Ops())

	_, err = dir.Profile(s.ctx, "user1")
	s.ErrorIs(err, types.ErrDailyBudget)
}

func (s *DirectorySuite) TestRemoveProfile() {
	id, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		FriendCode: strPtr("SW-1234"),
	}, false)
	s.NoError(err)

	s.NoError(s.dir.RemoveProfile(s.ctx, "user1"))

	s.Equal(0, s.store.Len(types.CollProfiles))
	s.Equal(0, s.store.Len(types.CollIDs))

	p, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Nil(p)
	p, err = s.dir.ProfileByID(s.ctx, id)
	s.NoError(err)
	s.Nil(p)

	// removing again is a no-op
	s.NoError(s.dir.RemoveProfile(s.ctx, "user1"))
}

func (s *DirectorySuite) TestBotRoundTrip() {
	id, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		GetProfile: boolPtr(true),
		TeamQuery:  boolPtr(true),
	}, false)
	s.NoError(err)
	s.Equal(ident.Derive(ident.BotKey("user1"), 1), id)

	b, err := s.dir.BotByKey(s.ctx, "user1")
	s.NoError(err)
	s.Require().NotNil(b)
	s.True(b.GetProfile)
	s.True(b.TeamQuery)
	s.False(b.SaveDrip)

	byID, err := s.dir.Bot(s.ctx, id)
	s.NoError(err)
	s.Require().NotNil(byID)
	s.Equal("user1", byID.UserID)
}

func (s *DirectorySuite) TestBotPresentFalseFlagIsStored() {
	_, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		GetProfile: boolPtr(true),
	}, false)
	s.NoError(err)

	_, err = s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		GetProfile: boolPtr(false),
	}, false)
	s.NoError(err)

	doc, err := s.store.Get(s.ctx, types.CollBots, "user1")
	s.NoError(err)
	s.Contains(doc, "getProfile")
	s.False(types.Bool(doc, "getProfile"))
}

func (s *DirectorySuite) TestNobotReadsAsAbsent() {
	_, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		NoBot: boolPtr(true),
	}, false)
	s.NoError(err)

	// the document physically exists
	s.Equal(1, s.store.Len(types.CollBots))

	b, err := s.dir.BotByKey(s.ctx, "user1")
	s.NoError(err)
	s.Nil(b)

	id := ident.Derive(ident.BotKey("user1"), 1)
	b, err = s.dir.Bot(s.ctx, id)
	s.NoError(err)
	s.Nil(b)

	// suppressed records refuse unrelated edits
	got, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		GetProfile: boolPtr(true),
	}, false)
	s.NoError(err)
	s.Empty(got)

	// clearing the flag makes the record visible again
	_, err = s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		NoBot: boolPtr(false),
	}, false)
	s.NoError(err)
	b, err = s.dir.BotByKey(s.ctx, "user1")
	s.NoError(err)
	s.NotNil(b)
}

func (s *DirectorySuite) TestBotVersionBumpMovesMapping() {
	oldID, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		GetProfile: boolPtr(true),
	}, false)
	s.NoError(err)

	newID, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{
		TeamQuery: boolPtr(true),
	}, true)
	s.NoError(err)
	s.NotEqual(oldID, newID)

	oldDoc, err := s.store.Get(s.ctx, types.CollIDs, oldID)
	s.NoError(err)
	s.Nil(oldDoc)

	newDoc, err := s.store.Get(s.ctx, types.CollIDs, newID)
	s.NoError(err)
	s.Require().NotNil(newDoc)
	s.Equal("bot", types.Str(newDoc, "type"))
}

func (s *DirectorySuite) TestReadPointersAreStableSnapshots() {
	_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("ink"),
	}, false)
	s.NoError(err)

	before, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.Require().NotNil(before)

	_, err = s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("splat"),
	}, true)
	s.NoError(err)

	// the pointer handed out earlier keeps its pre-write state
	s.Equal("ink", before.Name)
	s.Equal(int64(1), before.Version)
	s.Empty(before.RecentUpdates)

	after, err := s.dir.Profile(s.ctx, "user1")
	s.NoError(err)
	s.NotSame(before, after)
	s.Equal("splat", after.Name)
	s.Equal(int64(2), after.Version)

	_, err = s.dir.SaveBot(s.ctx, "user1", types.BotChanges{GetProfile: boolPtr(true)}, false)
	s.NoError(err)
	bBefore, err := s.dir.BotByKey(s.ctx, "user1")
	s.NoError(err)
	s.Require().NotNil(bBefore)

	_, err = s.dir.SaveBot(s.ctx, "user1", types.BotChanges{GetProfile: boolPtr(false)}, false)
	s.NoError(err)
	s.True(bBefore.GetProfile)

	bAfter, err := s.dir.BotByKey(s.ctx, "user1")
	s.NoError(err)
	s.Require().NotNil(bAfter)
	s.False(bAfter.GetProfile)
}

func (s *DirectorySuite) TestConcurrentReadersAndWriters() {
	_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
		Name: strPtr("ink"),
	}, false)
	s.NoError(err)

	const writes = 50
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			name := "ink"
			_, err := s.dir.UpdateProfile(s.ctx, "user1", types.ProfileChanges{
				Name: &name,
			}, true)
			if err != nil {
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			p, err := s.dir.Profile(s.ctx, "user1")
			if err != nil || p == nil {
				return
			}
			// field reads race with nothing: cached entries are immutable
			_ = p.Name
			_ = len(p.RecentUpdates)
			_ = p.Version
		}
	}()

	wg.Wait()

	// writes serialize under the per-key lock; the store holds the final state
	doc, err := s.store.Get(s.ctx, types.CollProfiles, "user1")
	s.NoError(err)
	s.Require().NotNil(doc)
	s.Equal(int64(1+writes), types.I64(doc, "version"))
}

func (s *DirectorySuite) TestAllBotsIncludesSuppressed() {
	_, err := s.dir.SaveBot(s.ctx, "user1", types.BotChanges{GetProfile: boolPtr(true)}, false)
	s.NoError(err)
	_, err = s.dir.SaveBot(s.ctx, "user2", types.BotChanges{NoBot: boolPtr(true)}, false)
	s.NoError(err)

	bots, err := s.dir.AllBots(s.ctx)
	s.NoError(err)
	s.Len(bots, 2)
}
