package storage

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/mcoot/chessapp-go/internal/model"
)

func TestSortLeaderboardExample(t *testing.T) {
	a := &model.Account{ID: 1, Username: "A", Wins: 5, TotalTimePlayed: 100}
	b := &model.Account{ID: 2, Username: "B", Wins: 5, TotalTimePlayed: 50}
	c := &model.Account{ID: 3, Username: "C", Wins: 7, TotalTimePlayed: 999}

	accounts := []*model.Account{a, b, c}
	SortLeaderboard(accounts)

	assert.Equal(t, []*model.Account{c, b, a}, accounts)
}

func TestSortLeaderboardProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	stats := gen.SliceOf(gen.IntRange(0, 5))

	properties.Property("adjacent entries are ordered by wins then time then id", prop.ForAll(
		func(wins []int, times []int) bool {
			n := len(wins)
			if len(times) < n {
				n = len(times)
			}
			accounts := make([]*model.Account, n)
			for i := 0; i < n; i++ {
				accounts[i] = &model.Account{
					ID:              model.AccountID(n - i),
					Wins:            wins[i],
					TotalTimePlayed: time.Duration(times[i]) * time.Second,
				}
			}

			SortLeaderboard(accounts)

			for i := 1; i < len(accounts); i++ {
				prev, cur := accounts[i-1], accounts[i]
				switch {
				case prev.Wins > cur.Wins:
				case prev.Wins < cur.Wins:
					return false
				case prev.TotalTimePlayed < cur.TotalTimePlayed:
				case prev.TotalTimePlayed > cur.TotalTimePlayed:
					return false
				case prev.ID > cur.ID:
					return false
				}
			}
			return true
		},
		stats,
		stats,
	))

	properties.TestingRun(t)
}

func TestFoldUsername(t *testing.T) {
	assert.Equal(t, FoldUsername("Alice_1"), FoldUsername("ALICE_1"))
	assert.Equal(t, "éclair", FoldUsername("éCLAIR"))
	assert.NotEqual(t, FoldUsername("Éclair"), FoldUsername("éclair"))
}
