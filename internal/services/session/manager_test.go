package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessapp-go/internal/dependencies/mocks"
	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/services/password"
	"github.com/mcoot/chessapp-go/internal/storage/memory"
	"github.com/mcoot/chessapp-go/internal/testutil"
)

var errInjected = model.NewStorageError("test", errors.New("disk on fire"))

// faultyStore wraps the memory backend with switchable failures and call counting
type faultyStore struct {
	*memory.Storage

	failFind  atomic.Bool
	failLoad  atomic.Bool
	failSave  atomic.Bool
	failClear atomic.Bool
	finds     atomic.Int64
}

func (f *faultyStore) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	f.finds.Add(1)
	if f.failFind.Load() {
		return nil, errInjected
	}
	return f.Storage.FindByUsername(ctx, username)
}

func (f *faultyStore) FindByID(ctx context.Context, id model.AccountID) (*model.Account, error) {
	f.finds.Add(1)
	if f.failFind.Load() {
		return nil, errInjected
	}
	return f.Storage.FindByID(ctx, id)
}

func (f *faultyStore) LoadMarker(ctx context.Context) (*model.SessionMarker, error) {
	if f.failLoad.Load() {
		return nil, errInjected
	}
	return f.Storage.LoadMarker(ctx)
}

func (f *faultyStore) SaveMarker(ctx context.Context, marker model.SessionMarker) error {
	if f.failSave.Load() {
		return errInjected
	}
	return f.Storage.SaveMarker(ctx, marker)
}

func (f *faultyStore) ClearMarker(ctx context.Context) error {
	if f.failClear.Load() {
		return errInjected
	}
	return f.Storage.ClearMarker(ctx)
}

type ManagerSuite struct {
	suite.Suite
	store   *faultyStore
	manager *Manager
	ctx     context.Context
	aliceID model.AccountID
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &faultyStore{
		Storage: memory.New(mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))),
	}

	id, err := s.store.CreateAccount(s.ctx, "alice", password.Hash("secret1"))
	s.Require().NoError(err)
	s.aliceID = id

	s.manager = s.newManager()
}

// newManager simulates a process start against the same durable store
func (s *ManagerSuite) newManager() *Manager {
	return New(s.store, s.store, password.SHA256Hasher{}, testutil.NopLogger())
}

func (s *ManagerSuite) marker() *model.SessionMarker {
	marker, err := s.store.Storage.LoadMarker(s.ctx)
	s.Require().NoError(err)
	return marker
}

func (s *ManagerSuite) requireLoggedOut(m *Manager) {
	s.False(m.IsLoggedIn())
	s.Nil(m.CurrentUser())
	s.Equal("", m.CurrentUsername())
	s.Equal(model.NoAccount, m.CurrentUserID())
}

// Login tests

func (s *ManagerSuite) TestLoginSuccess() {
	result := s.manager.Login(s.ctx, "alice", "secret1")
	s.True(result.Success)
	s.Equal(MsgLoginSuccessful, result.Message)

	s.True(s.manager.IsLoggedIn())
	s.Equal("alice", s.manager.CurrentUsername())
	s.Equal(s.aliceID, s.manager.CurrentUserID())

	marker := s.marker()
	s.True(marker.LoggedIn)
	s.Equal(s.aliceID, marker.UserID)
	s.Equal("alice", marker.Username)
}

func (s *ManagerSuite) TestLoginTrimsUsername() {
	result := s.manager.Login(s.ctx, "  alice  ", "secret1")
	s.True(result.Success)
	s.Equal("alice", s.manager.CurrentUsername())
}

func (s *ManagerSuite) TestLoginIgnoresUsernameCase() {
	result := s.manager.Login(s.ctx, "ALICE", "secret1")
	s.True(result.Success)
	s.Equal("alice", s.manager.CurrentUsername())
}

func (s *ManagerSuite) TestLoginBlankFieldsSkipStorage() {
	s.store.failFind.Store(true)

	cases := []struct {
		username, secret, message string
	}{
		{"", "secret1", MsgEmptyUsername},
		{"   ", "secret1", MsgEmptyUsername},
		{"", "", MsgEmptyUsername},
		{"alice", "", MsgEmptyPassword},
		{"alice", " \t ", MsgEmptyPassword},
	}
	for _, tc := range cases {
		result := s.manager.Login(s.ctx, tc.username, tc.secret)
		s.False(result.Success)
		s.Equal(tc.message, result.Message, "username=%q secret=%q", tc.username, tc.secret)
	}

	s.Equal(int64(0), s.store.finds.Load())
	s.requireLoggedOut(s.manager)
}

func (s *ManagerSuite) TestLoginFailuresAreIndistinguishable() {
	unknown := s.manager.Login(s.ctx, "ghost", "anything")
	wrong := s.manager.Login(s.ctx, "alice", "wrong")

	s.False(unknown.Success)
	s.False(wrong.Success)
	s.Equal(MsgInvalidCredentials, unknown.Message)
	s.Equal(unknown, wrong)
	s.requireLoggedOut(s.manager)
	s.False(s.marker().LoggedIn)
}

func (s *ManagerSuite) TestLoginStorageFailure() {
	s.store.failFind.Store(true)

	result := s.manager.Login(s.ctx, "alice", "secret1")
	s.False(result.Success)
	s.Equal(MsgSystemError, result.Message)
	s.requireLoggedOut(s.manager)
}

func (s *ManagerSuite) TestLoginMarkerWriteFailureStaysLoggedOut() {
	s.store.failSave.Store(true)

	result := s.manager.Login(s.ctx, "alice", "secret1")
	s.False(result.Success)
	s.Equal(MsgSystemError, result.Message)
	s.requireLoggedOut(s.manager)
	s.False(s.marker().LoggedIn)
}

func (s *ManagerSuite) TestFailedLoginKeepsExistingSession() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)

	result := s.manager.Login(s.ctx, "alice", "wrong")
	s.False(result.Success)
	s.True(s.manager.IsLoggedIn())
	s.Equal(s.aliceID, s.manager.CurrentUserID())
}

func (s *ManagerSuite) TestLoginAcceptsBcryptDigest() {
	digest, err := password.BcryptHasher{Cost: 4}.Hash("pass2")
	s.Require().NoError(err)
	_, err = s.store.CreateAccount(s.ctx, "bob", digest)
	s.Require().NoError(err)

	s.True(s.manager.Login(s.ctx, "bob", "pass2").Success)
}

// Logout tests

func (s *ManagerSuite) TestLogout() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)

	s.manager.Logout(s.ctx)

	s.requireLoggedOut(s.manager)
	s.Equal(model.SessionMarker{}, *s.marker())
}

func (s *ManagerSuite) TestLogoutIsIdempotent() {
	s.manager.Logout(s.ctx)
	s.manager.Logout(s.ctx)
	s.requireLoggedOut(s.manager)
}

func (s *ManagerSuite) TestLogoutSurvivesMarkerFailure() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	s.store.failClear.Store(true)

	s.manager.Logout(s.ctx)
	s.requireLoggedOut(s.manager)
}

// Accessor tests

func (s *ManagerSuite) TestInitialStateIsLoggedOut() {
	s.requireLoggedOut(s.manager)
}

func (s *ManagerSuite) TestCurrentUserIsACopy() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)

	user := s.manager.CurrentUser()
	s.Require().NotNil(user)
	user.Wins = 100
	user.Username = "mallory"

	s.Equal(0, s.manager.CurrentUser().Wins)
	s.Equal("alice", s.manager.CurrentUsername())
}

// ValidateCredentials tests

func (s *ManagerSuite) TestValidateCredentials() {
	s.True(s.manager.ValidateCredentials(s.ctx, "alice", "secret1"))
	s.True(s.manager.ValidateCredentials(s.ctx, " alice ", "secret1"))
	s.False(s.manager.ValidateCredentials(s.ctx, "alice", "wrong"))
	s.False(s.manager.ValidateCredentials(s.ctx, "ghost", "secret1"))
	s.False(s.manager.ValidateCredentials(s.ctx, "", "secret1"))
	s.False(s.manager.ValidateCredentials(s.ctx, "alice", ""))
}

func (s *ManagerSuite) TestValidateCredentialsHasNoSideEffects() {
	s.True(s.manager.ValidateCredentials(s.ctx, "alice", "secret1"))

	s.requireLoggedOut(s.manager)
	s.False(s.marker().LoggedIn)
}

func (s *ManagerSuite) TestValidateCredentialsStorageFailure() {
	s.store.failFind.Store(true)
	s.False(s.manager.ValidateCredentials(s.ctx, "alice", "secret1"))
}

// Refresh tests

func (s *ManagerSuite) TestRefreshWhenLoggedOut() {
	s.Equal(RefreshSkipped, s.manager.RefreshCurrentUser(s.ctx))
}

func (s *ManagerSuite) TestRefreshPicksUpNewStats() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	_, err := s.store.UpdateStats(s.ctx, s.aliceID, 4, time.Minute)
	s.Require().NoError(err)

	s.Equal(0, s.manager.CurrentUser().Wins)
	s.Equal(Refreshed, s.manager.RefreshCurrentUser(s.ctx))
	s.Equal(4, s.manager.CurrentUser().Wins)
	s.Equal(time.Minute, s.manager.CurrentUser().TotalTimePlayed)
}

func (s *ManagerSuite) TestRefreshKeepsStaleCopyWhenAccountGone() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	_, err := s.store.DeleteAll(s.ctx)
	s.Require().NoError(err)

	s.Equal(RefreshKeptStale, s.manager.RefreshCurrentUser(s.ctx))
	s.True(s.manager.IsLoggedIn())
	s.Equal("alice", s.manager.CurrentUsername())
}

func (s *ManagerSuite) TestRefreshKeepsStaleCopyOnStorageFailure() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	s.store.failFind.Store(true)

	s.Equal(RefreshKeptStale, s.manager.RefreshCurrentUser(s.ctx))
	s.Equal(s.aliceID, s.manager.CurrentUserID())
}

// Initialize tests

func (s *ManagerSuite) TestInitializeWithoutMarker() {
	s.Equal(RestoreNone, s.manager.Initialize(s.ctx))
	s.requireLoggedOut(s.manager)
}

func (s *ManagerSuite) TestSessionSurvivesRestart() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)

	restarted := s.newManager()
	s.Equal(Restored, restarted.Initialize(s.ctx))
	s.True(restarted.IsLoggedIn())
	s.Equal(s.aliceID, restarted.CurrentUserID())
	s.Equal("alice", restarted.CurrentUsername())
}

func (s *ManagerSuite) TestLogoutSurvivesRestart() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	s.manager.Logout(s.ctx)

	restarted := s.newManager()
	s.Equal(RestoreNone, restarted.Initialize(s.ctx))
	s.requireLoggedOut(restarted)
}

func (s *ManagerSuite) TestInitializeClearsDanglingMarker() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	_, err := s.store.DeleteAll(s.ctx)
	s.Require().NoError(err)

	restarted := s.newManager()
	s.Equal(RestoreCleared, restarted.Initialize(s.ctx))
	s.requireLoggedOut(restarted)
	s.Equal(model.SessionMarker{}, *s.marker())

	// The next start finds nothing to restore
	again := s.newManager()
	s.Equal(RestoreNone, again.Initialize(s.ctx))
	s.requireLoggedOut(again)
}

func (s *ManagerSuite) TestInitializeClearsInvalidMarker() {
	markers := []model.SessionMarker{
		{LoggedIn: true, UserID: 0, Username: "alice"},
		{LoggedIn: true, UserID: -1, Username: "alice"},
		{LoggedIn: true, UserID: s.aliceID, Username: ""},
	}
	for _, marker := range markers {
		s.Require().NoError(s.store.SaveMarker(s.ctx, marker))

		m := s.newManager()
		s.Equal(RestoreCleared, m.Initialize(s.ctx), "marker %+v", marker)
		s.requireLoggedOut(m)
		s.False(s.marker().LoggedIn)
	}
}

func (s *ManagerSuite) TestInitializeUnreadableMarker() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	s.store.failLoad.Store(true)

	restarted := s.newManager()
	s.Equal(RestoreCleared, restarted.Initialize(s.ctx))
	s.requireLoggedOut(restarted)
	s.False(s.marker().LoggedIn)
}

func (s *ManagerSuite) TestInitializeLookupFailure() {
	s.Require().True(s.manager.Login(s.ctx, "alice", "secret1").Success)
	s.store.failFind.Store(true)

	restarted := s.newManager()
	s.Equal(RestoreCleared, restarted.Initialize(s.ctx))
	s.requireLoggedOut(restarted)
}

func (s *ManagerSuite) TestInitializeSurvivesEverythingFailing() {
	s.store.failLoad.Store(true)
	s.store.failClear.Store(true)

	s.NotPanics(func() {
		s.Equal(RestoreCleared, s.manager.Initialize(s.ctx))
	})
	s.requireLoggedOut(s.manager)
}

// Concurrency tests

func (s *ManagerSuite) TestConcurrentOperationsKeepMarkerConsistent() {
	names := []string{"bob", "carol", "dave"}
	ids := map[string]model.AccountID{"alice": s.aliceID}
	for _, name := range names {
		id, err := s.store.CreateAccount(s.ctx, name, password.Hash("pw_"+name))
		s.Require().NoError(err)
		ids[name] = id
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				switch (i + j) % 4 {
				case 0:
					s.manager.Login(s.ctx, "alice", "secret1")
				case 1:
					name := names[(i+j)%len(names)]
					s.manager.Login(s.ctx, name, "pw_"+name)
				case 2:
					s.manager.Logout(s.ctx)
				case 3:
					s.manager.RefreshCurrentUser(s.ctx)
				}
			}
		}(i)
	}

	var torn atomic.Int64
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if user := s.manager.CurrentUser(); user != nil && ids[user.Username] != user.ID {
					torn.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	s.Equal(int64(0), torn.Load())

	marker := s.marker()
	s.Equal(s.manager.IsLoggedIn(), marker.LoggedIn)
	if marker.LoggedIn {
		s.Equal(s.manager.CurrentUserID(), marker.UserID)
		s.Equal(s.manager.CurrentUsername(), marker.Username)
	}
}

func (s *ManagerSuite) TestResultStrings() {
	s.Equal("restored", Restored.String())
	s.Equal("cleared", RestoreCleared.String())
	s.Equal("kept_stale", RefreshKeptStale.String())
	s.Equal("unknown", RefreshResult(42).String())
	s.Equal("none", fmt.Sprint(RestoreNone))
}
