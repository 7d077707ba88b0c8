package archive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
)

// Archiver implements the bot's battle lifecycle observer on top of the
// Redis store and the optional Postgres repository. Either sink may be nil.
type Archiver struct {
	store  *Store
	repo   *Repository
	logger *zap.Logger
}

func NewArchiver(store *Store, repo *Repository, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, repo: repo, logger: logger}
}

func (a *Archiver) BattleStarted(room, opponent, format string) {
	a.logger.Info("battle_started",
		zap.String("room", room),
		zap.String("opponent", opponent),
		zap.String("format", format))
}

func (a *Archiver) TurnAdvanced(room string, turn int) {}

func (a *Archiver) BattleEnded(res battle.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.store != nil {
		if err := a.store.SaveResult(ctx, res); err != nil {
			a.logger.Warn("archive_redis_failed", zap.String("battle", res.ID), zap.Error(err))
		}
	}
	if a.repo != nil {
		if err := a.repo.SaveResult(ctx, res); err != nil {
			a.logger.Warn("archive_db_failed", zap.String("battle", res.ID), zap.Error(err))
		}
	}
}
