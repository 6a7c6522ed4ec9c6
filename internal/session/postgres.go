// internal/session/postgres.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in a single game_sessions table, with the
// game state and metadata stored as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens a pgx pool against connURL and pings it.
func ConnectPostgres(ctx context.Context, connURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the game_sessions table and its indexes if absent.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS game_sessions (
			session_id        TEXT PRIMARY KEY,
			game_id           TEXT NOT NULL,
			game_type         TEXT NOT NULL,
			lobby_id          TEXT,
			player_ids        TEXT[] NOT NULL,
			current_player_id TEXT NOT NULL,
			status            TEXT NOT NULL,
			game_state        JSONB NOT NULL,
			started_at        TIMESTAMPTZ NOT NULL,
			ended_at          TIMESTAMPTZ,
			winner_id         TEXT,
			total_moves       INT NOT NULL DEFAULT 0,
			metadata          JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_game_id ON game_sessions (game_id);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_player_ids ON game_sessions USING GIN (player_ids);
	`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure game_sessions schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	stateJSON, err := json.Marshal(s.GameState)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}
	metaJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		INSERT INTO game_sessions
			(session_id, game_id, game_type, lobby_id, player_ids, current_player_id,
			 status, game_state, started_at, ended_at, winner_id, total_moves, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (session_id) DO UPDATE SET
			current_player_id = EXCLUDED.current_player_id,
			status            = EXCLUDED.status,
			game_state        = EXCLUDED.game_state,
			ended_at          = EXCLUDED.ended_at,
			winner_id         = EXCLUDED.winner_id,
			total_moves       = EXCLUDED.total_moves,
			metadata          = EXCLUDED.metadata
	`
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			s.SessionID, s.GameID, s.GameType, nullable(s.LobbyID), s.PlayerIDs,
			s.CurrentPlayerID, string(s.Status), stateJSON, s.StartedAt, s.EndedAt,
			nullable(s.WinnerID), s.TotalMoves, metaJSON,
		)
		return err
	})
}

const selectColumns = `
	session_id, game_id, game_type, lobby_id, player_ids, current_player_id,
	status, game_state, started_at, ended_at, winner_id, total_moves, metadata
`

func (p *PostgresStore) FindByID(ctx context.Context, sessionID string) (*Session, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM game_sessions WHERE session_id = $1`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (p *PostgresStore) FindByGameID(ctx context.Context, gameID string) ([]*Session, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM game_sessions WHERE game_id = $1 ORDER BY started_at DESC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (p *PostgresStore) FindByPlayerID(ctx context.Context, playerID string, limit int, status Status) ([]*Session, error) {
	q := `SELECT ` + selectColumns + ` FROM game_sessions WHERE $1 = ANY(player_ids)`
	args := []interface{}{playerID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, string(status))
	}
	q += ` ORDER BY started_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows pgx.Rows) ([]*Session, error) {
	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		s                  Session
		lobbyID, winnerID  *string
		status             string
		stateJSON, metaRaw []byte
	)
	err := row.Scan(
		&s.SessionID, &s.GameID, &s.GameType, &lobbyID, &s.PlayerIDs,
		&s.CurrentPlayerID, &status, &stateJSON, &s.StartedAt, &s.EndedAt,
		&winnerID, &s.TotalMoves, &metaRaw,
	)
	if err != nil {
		return nil, err
	}
	s.Status = Status(status)
	if lobbyID != nil {
		s.LobbyID = *lobbyID
	}
	if winnerID != nil {
		s.WinnerID = *winnerID
	}
	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &s.GameState); err != nil {
			return nil, fmt.Errorf("unmarshal game state: %w", err)
		}
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &s, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
