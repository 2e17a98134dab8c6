package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessapp-go/internal/dependencies/mocks"
	"github.com/mcoot/chessapp-go/internal/storage"
	"github.com/mcoot/chessapp-go/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func(_ *testing.T, clk *mocks.MockClock) storage.Storage {
			return New(clk)
		},
	})
}

type MemorySuite struct {
	suite.Suite
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) TestReturnedAccountsAreCopies() {
	store := New(mocks.NewMockClock(storagetest.Epoch))
	id, err := store.CreateAccount(s.T().Context(), "alice", "d")
	s.Require().NoError(err)

	account, err := store.FindByID(s.T().Context(), id)
	s.Require().NoError(err)
	account.Wins = 99

	again, err := store.FindByID(s.T().Context(), id)
	s.Require().NoError(err)
	s.Equal(0, again.Wins)
}
