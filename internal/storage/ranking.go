package storage

import (
	"sort"
	"strings"

	"github.com/mcoot/chessapp-go/internal/model"
)

// FoldUsername returns the key usernames are compared by. Only ASCII letters are
// folded, the same as SQLite's NOCASE collation.
func FoldUsername(username string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, username)
}

// SortLeaderboard orders accounts in place: more wins first, then less time played,
// then lower id
func SortLeaderboard(accounts []*model.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.TotalTimePlayed != b.TotalTimePlayed {
			return a.TotalTimePlayed < b.TotalTimePlayed
		}
		return a.ID < b.ID
	})
}
