package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/services/accounts"
	"github.com/mcoot/chessapp-go/internal/services/session"
)

// genericStorageMessage replaces storage failure details in user-facing output
const genericStorageMessage = "A storage error occurred; see the log for details"

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error. Storage failures are reported generically.
func (o *Output) PrintError(err error) {
	msg := err.Error()
	if errors.Is(err, model.ErrStorage) {
		msg = genericStorageMessage
	}

	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": msg,
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", msg)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Profile:
		o.printProfile(v)
	case SessionStatus:
		o.printSessionStatus(v)
	case session.Result:
		fmt.Fprintln(o.out, v.Message)
	case []Standing:
		o.printStandings(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Profile is the public view of an account. The password digest is never shown.
type Profile struct {
	ID                model.AccountID `json:"id"`
	Username          string          `json:"username"`
	Wins              int             `json:"wins"`
	TotalTimePlayedMs int64           `json:"total_time_played_ms"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newProfile(a *model.Account) Profile {
	return Profile{
		ID:                a.ID,
		Username:          a.Username,
		Wins:              a.Wins,
		TotalTimePlayedMs: a.TotalTimePlayed.Milliseconds(),
		CreatedAt:         a.CreatedAt,
	}
}

// SessionStatus reports who is logged in
type SessionStatus struct {
	LoggedIn bool     `json:"logged_in"`
	User     *Profile `json:"user,omitempty"`
}

// Standing is one leaderboard row
type Standing struct {
	Rank              int             `json:"rank"`
	ID                model.AccountID `json:"id"`
	Username          string          `json:"username"`
	Wins              int             `json:"wins"`
	TotalTimePlayedMs int64           `json:"total_time_played_ms"`
}

func newStandings(in []accounts.Standing) []Standing {
	out := make([]Standing, len(in))
	for i, s := range in {
		out[i] = Standing{
			Rank:              s.Rank,
			ID:                s.ID,
			Username:          s.Username,
			Wins:              s.Wins,
			TotalTimePlayedMs: s.TotalTimePlayed.Milliseconds(),
		}
	}
	return out
}

func (o *Output) printProfile(p Profile) {
	fmt.Fprintf(o.out, "Player: %s (%d)\n", p.Username, p.ID)
	fmt.Fprintf(o.out, "Wins: %d\n", p.Wins)
	fmt.Fprintf(o.out, "Time Played: %s\n", time.Duration(p.TotalTimePlayedMs)*time.Millisecond)
}

func (o *Output) printSessionStatus(s SessionStatus) {
	if !s.LoggedIn || s.User == nil {
		fmt.Fprintln(o.out, "Not logged in")
		return
	}
	o.printProfile(*s.User)
}

func (o *Output) printStandings(standings []Standing) {
	if len(standings) == 0 {
		fmt.Fprintln(o.out, "No players yet")
		return
	}
	fmt.Fprintf(o.out, "%-4s  %-20s  %5s  %s\n", "Rank", "Player", "Wins", "Time Played")
	for _, s := range standings {
		fmt.Fprintf(o.out, "%-4d  %-20s  %5d  %s\n",
			s.Rank, s.Username, s.Wins, time.Duration(s.TotalTimePlayedMs)*time.Millisecond)
	}
}
