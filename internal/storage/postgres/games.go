package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/nightfall/internal/stats"
)

// ErrGameNotFound is returned when a game lookup yields no results.
var ErrGameNotFound = errors.New("game not found")

// ErrGameRecorded is returned when a start snapshot arrives for a game that
// already has a row.
var ErrGameRecorded = errors.New("game already recorded")

// GameRecord is one stored game with its players.
type GameRecord struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	// EndedAt is nil while the game has no end snapshot.
	EndedAt    *time.Time           `json:"ended_at,omitempty"`
	FinalDay   int                  `json:"final_day"`
	Conclusion string               `json:"conclusion,omitempty"`
	Players    []stats.PlayerRecord `json:"players,omitempty"`
}

// GameRepository stores game snapshots. It implements stats.Sink.
type GameRepository struct {
	db *pgxpool.Pool
}

// NewGameRepository creates a GameRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// Record stores a start or end snapshot inside one transaction.
//
// Precondition: s.GameID must be a UUID.
// Postcondition: A start snapshot inserts the game and its players, returning
// ErrGameRecorded on duplicate. An end snapshot closes the game and updates
// every player row, creating them if the start snapshot was lost.
func (r *GameRepository) Record(ctx context.Context, s stats.Snapshot) error {
	id, err := uuid.Parse(s.GameID)
	if err != nil {
		return fmt.Errorf("parsing game id %q: %w", s.GameID, err)
	}
	at := s.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		switch s.Event {
		case stats.EventStart:
			if _, err := tx.Exec(ctx, `
				INSERT INTO games (id, started_at, final_day) VALUES ($1, $2, $3)`,
				id, at, s.Day,
			); err != nil {
				if isDuplicateKeyError(err) {
					return ErrGameRecorded
				}
				return fmt.Errorf("inserting game: %w", err)
			}
		case stats.EventEnd:
			if _, err := tx.Exec(ctx, `
				INSERT INTO games (id, started_at, ended_at, final_day, conclusion)
				VALUES ($1, $2, $2, $3, NULLIF($4, ''))
				ON CONFLICT (id) DO UPDATE
				SET ended_at = EXCLUDED.ended_at,
				    final_day = EXCLUDED.final_day,
				    conclusion = EXCLUDED.conclusion`,
				id, at, s.Day, s.Conclusion,
			); err != nil {
				return fmt.Errorf("closing game: %w", err)
			}
		default:
			return fmt.Errorf("unknown snapshot event %q", s.Event)
		}
		return upsertPlayers(ctx, tx, id, s.Players)
	})
}

func upsertPlayers(ctx context.Context, tx pgx.Tx, id uuid.UUID, players []stats.PlayerRecord) error {
	if len(players) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(`
			INSERT INTO game_players (game_id, player, name, role, faction, alive, won)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (game_id, player) DO UPDATE
			SET role = EXCLUDED.role, faction = EXCLUDED.faction,
			    alive = EXCLUDED.alive, won = EXCLUDED.won`,
			id, p.Index, p.Name, p.Role, p.Faction, p.Alive, p.Won,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("storing players: %w", err)
	}
	return nil
}

// Get retrieves a game and its players by id.
//
// Postcondition: Returns the GameRecord or ErrGameNotFound.
func (r *GameRepository) Get(ctx context.Context, id string) (GameRecord, error) {
	gid, err := uuid.Parse(id)
	if err != nil {
		return GameRecord{}, ErrGameNotFound
	}

	rec := GameRecord{ID: gid.String()}
	var conclusion *string
	err = r.db.QueryRow(ctx, `
		SELECT started_at, ended_at, final_day, conclusion
		FROM games WHERE id = $1`,
		gid,
	).Scan(&rec.StartedAt, &rec.EndedAt, &rec.FinalDay, &conclusion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GameRecord{}, ErrGameNotFound
		}
		return GameRecord{}, fmt.Errorf("querying game: %w", err)
	}
	if conclusion != nil {
		rec.Conclusion = *conclusion
	}

	rec.Players, err = r.players(ctx, gid)
	if err != nil {
		return GameRecord{}, err
	}
	return rec, nil
}

// Recent returns up to limit finished games, newest first, without players.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *GameRepository) Recent(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, started_at, ended_at, final_day, COALESCE(conclusion, '')
		FROM games WHERE ended_at IS NOT NULL
		ORDER BY ended_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	out := make([]GameRecord, 0)
	for rows.Next() {
		var rec GameRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.EndedAt, &rec.FinalDay, &rec.Conclusion); err != nil {
			return nil, fmt.Errorf("scanning game row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *GameRepository) players(ctx context.Context, id uuid.UUID) ([]stats.PlayerRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT player, name, role, faction, alive, won
		FROM game_players WHERE game_id = $1 ORDER BY player ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	out := make([]stats.PlayerRecord, 0)
	for rows.Next() {
		var p stats.PlayerRecord
		if err := rows.Scan(&p.Index, &p.Name, &p.Role, &p.Faction, &p.Alive, &p.Won); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
