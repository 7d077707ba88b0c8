package battle

import "time"

// Result is the outcome of one finished battle, as reported to lifecycle
// observers and the archive. Winner is empty for a tie.
type Result struct {
	ID        string
	Room      string
	Format    string
	PlayerOne string
	PlayerTwo string
	Winner    string
	Turns     int
	Duration  time.Duration
	EndedAt   time.Time
}

// Loser names the non-winning player, or empty for a tie.
func (r Result) Loser() string {
	switch r.Winner {
	case "":
		return ""
	case r.PlayerOne:
		return r.PlayerTwo
	default:
		return r.PlayerOne
	}
}
