// Package storagetest holds the behaviour every storage backend must share.
// Backend packages run it with suite.Run against their own constructor.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessapp-go/internal/dependencies/mocks"
	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Epoch is the time the mock clock starts at
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Suite exercises a storage.Storage implementation
type Suite struct {
	suite.Suite

	// NewStorage builds a fresh, empty backend using the given clock
	NewStorage func(t *testing.T, clk *mocks.MockClock) storage.Storage

	Storage storage.Storage
	Clock   *mocks.MockClock
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Clock = mocks.NewMockClock(Epoch)
	s.Storage = s.NewStorage(s.T(), s.Clock)
	s.Ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

func (s *Suite) create(username string) model.AccountID {
	id, err := s.Storage.CreateAccount(s.Ctx, username, "digest-"+username)
	s.Require().NoError(err)
	return id
}

// Account tests

func (s *Suite) TestCreateAndFindByUsername() {
	id, err := s.Storage.CreateAccount(s.Ctx, "alice", "d1")
	s.Require().NoError(err)
	s.Positive(int64(id))

	account, err := s.Storage.FindByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(id, account.ID)
	s.Equal("alice", account.Username)
	s.Equal("d1", account.PasswordDigest)
	s.Equal(0, account.Wins)
	s.Equal(time.Duration(0), account.TotalTimePlayed)
	s.True(Epoch.Equal(account.CreatedAt), "created at %v", account.CreatedAt)
}

func (s *Suite) TestFindByIDIsStable() {
	id := s.create("alice")

	first, err := s.Storage.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	second, err := s.Storage.FindByID(s.Ctx, id)
	s.Require().NoError(err)

	s.Equal(id, first.ID)
	s.Equal(first.ID, second.ID)
	s.Equal("alice", second.Username)
}

func (s *Suite) TestFindByUsernameNotFound() {
	_, err := s.Storage.FindByUsername(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestFindByIDNotFound() {
	_, err := s.Storage.FindByID(s.Ctx, 4242)
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestDuplicateUsernameRejected() {
	s.create("alice")

	_, err := s.Storage.CreateAccount(s.Ctx, "alice", "other")
	s.ErrorIs(err, model.ErrDuplicateUsername)

	accounts, err := s.Storage.Leaderboard(s.Ctx)
	s.Require().NoError(err)
	s.Len(accounts, 1)
	s.Equal("digest-alice", accounts[0].PasswordDigest)
}

func (s *Suite) TestDuplicateUsernameIgnoresCase() {
	s.create("alice")

	_, err := s.Storage.CreateAccount(s.Ctx, "ALICE", "other")
	s.ErrorIs(err, model.ErrDuplicateUsername)
}

func (s *Suite) TestUsernameCaseFoldingIsASCIIOnly() {
	upper := s.create("Éclair")
	lower := s.create("éclair")
	s.NotEqual(upper, lower)

	account, err := s.Storage.FindByUsername(s.Ctx, "éclair")
	s.Require().NoError(err)
	s.Equal(lower, account.ID)

	// ASCII letters still fold around the accented one
	_, err = s.Storage.CreateAccount(s.Ctx, "ÉCLAIR", "other")
	s.ErrorIs(err, model.ErrDuplicateUsername)
}

func (s *Suite) TestCreatedAtComesFromClock() {
	later := time.Date(2025, 6, 30, 8, 15, 0, 0, time.UTC)
	s.Clock.Set(later)

	id := s.create("alice")

	account, err := s.Storage.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	s.True(later.Equal(account.CreatedAt), "created at %v", account.CreatedAt)
}

func (s *Suite) TestFindByUsernameIgnoresCaseAndKeepsSpelling() {
	id := s.create("Alice_1")

	account, err := s.Storage.FindByUsername(s.Ctx, "alice_1")
	s.Require().NoError(err)
	s.Equal(id, account.ID)
	s.Equal("Alice_1", account.Username)
}

func (s *Suite) TestUsernameExists() {
	s.create("alice")

	exists, err := s.Storage.UsernameExists(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.UsernameExists(s.Ctx, "Alice")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.UsernameExists(s.Ctx, "bob")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestIDsIncrease() {
	a := s.create("alice")
	b := s.create("bob")
	s.Greater(int64(b), int64(a))
}

func (s *Suite) TestUpdateStatsIsAbsolute() {
	id := s.create("alice")

	rows, err := s.Storage.UpdateStats(s.Ctx, id, 3, 1000*time.Millisecond)
	s.Require().NoError(err)
	s.Equal(int64(1), rows)

	rows, err = s.Storage.UpdateStats(s.Ctx, id, 3, 1000*time.Millisecond)
	s.Require().NoError(err)
	s.Equal(int64(1), rows)

	account, err := s.Storage.FindByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal(3, account.Wins)
	s.Equal(1000*time.Millisecond, account.TotalTimePlayed)
}

func (s *Suite) TestUpdateStatsUnknownIDAffectsNothing() {
	rows, err := s.Storage.UpdateStats(s.Ctx, 999, 1, time.Second)
	s.Require().NoError(err)
	s.Equal(int64(0), rows)
}

func (s *Suite) TestLeaderboardOrdering() {
	a := s.create("a_player")
	b := s.create("b_player")
	c := s.create("c_player")

	_, err := s.Storage.UpdateStats(s.Ctx, a, 5, 100*time.Millisecond)
	s.Require().NoError(err)
	_, err = s.Storage.UpdateStats(s.Ctx, b, 5, 50*time.Millisecond)
	s.Require().NoError(err)
	_, err = s.Storage.UpdateStats(s.Ctx, c, 7, 999*time.Millisecond)
	s.Require().NoError(err)

	accounts, err := s.Storage.Leaderboard(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal([]model.AccountID{c, b, a}, []model.AccountID{accounts[0].ID, accounts[1].ID, accounts[2].ID})
}

func (s *Suite) TestLeaderboardFullTieIsStable() {
	a := s.create("a_player")
	b := s.create("b_player")

	for i := 0; i < 3; i++ {
		accounts, err := s.Storage.Leaderboard(s.Ctx)
		s.Require().NoError(err)
		s.Require().Len(accounts, 2)
		s.Equal(a, accounts[0].ID)
		s.Equal(b, accounts[1].ID)
	}
}

func (s *Suite) TestLeaderboardEmpty() {
	accounts, err := s.Storage.Leaderboard(s.Ctx)
	s.Require().NoError(err)
	s.Empty(accounts)
}

func (s *Suite) TestDeleteAll() {
	first := s.create("alice")
	s.create("bob")

	n, err := s.Storage.DeleteAll(s.Ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	_, err = s.Storage.FindByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrAccountNotFound)

	exists, err := s.Storage.UsernameExists(s.Ctx, "bob")
	s.Require().NoError(err)
	s.False(exists)

	// Ids are never reused, even after a wipe
	again := s.create("alice")
	s.NotEqual(first, again)
}

// Marker tests

func (s *Suite) TestLoadMarkerWhenAbsent() {
	marker, err := s.Storage.LoadMarker(s.Ctx)
	s.Require().NoError(err)
	s.False(marker.LoggedIn)
}

func (s *Suite) TestSaveAndLoadMarker() {
	err := s.Storage.SaveMarker(s.Ctx, model.SessionMarker{LoggedIn: true, UserID: 7, Username: "alice"})
	s.Require().NoError(err)

	marker, err := s.Storage.LoadMarker(s.Ctx)
	s.Require().NoError(err)
	s.True(marker.LoggedIn)
	s.Equal(model.AccountID(7), marker.UserID)
	s.Equal("alice", marker.Username)
}

func (s *Suite) TestSaveMarkerOverwrites() {
	s.Require().NoError(s.Storage.SaveMarker(s.Ctx, model.SessionMarker{LoggedIn: true, UserID: 7, Username: "alice"}))
	s.Require().NoError(s.Storage.SaveMarker(s.Ctx, model.SessionMarker{LoggedIn: true, UserID: 8, Username: "bob"}))

	marker, err := s.Storage.LoadMarker(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.AccountID(8), marker.UserID)
	s.Equal("bob", marker.Username)
}

func (s *Suite) TestClearMarker() {
	s.Require().NoError(s.Storage.SaveMarker(s.Ctx, model.SessionMarker{LoggedIn: true, UserID: 7, Username: "alice"}))

	s.Require().NoError(s.Storage.ClearMarker(s.Ctx))
	s.Require().NoError(s.Storage.ClearMarker(s.Ctx))

	marker, err := s.Storage.LoadMarker(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.SessionMarker{}, *marker)
}
