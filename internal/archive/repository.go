package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
)

// Repository persists finished battle records in PostgreSQL for the
// scheduler/leaderboard collaborators to read. The core never reads ranking
// data back.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts one finished battle.
func (r *Repository) SaveResult(ctx context.Context, res battle.Result) error {
	if r == nil || r.db == nil {
		return nil
	}

	q := `INSERT INTO battle_results (
	    battle_id, room, format, player_one, player_two,
	    winner, turns, duration_ms, ended_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	  ON CONFLICT (battle_id) DO UPDATE SET
	    room=EXCLUDED.room,
	    format=EXCLUDED.format,
	    player_one=EXCLUDED.player_one,
	    player_two=EXCLUDED.player_two,
	    winner=EXCLUDED.winner,
	    turns=EXCLUDED.turns,
	    duration_ms=EXCLUDED.duration_ms,
	    ended_at=EXCLUDED.ended_at`

	duration := res.Duration.Milliseconds()
	if duration < 0 {
		duration = 0
	}
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.Room, res.Format,
		res.PlayerOne, res.PlayerTwo,
		sql.NullString{String: res.Winner, Valid: res.Winner != ""},
		res.Turns, duration, res.EndedAt,
	)
	return err
}
