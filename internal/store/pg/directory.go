package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shanmukhchodagam/workhub/internal/store"
)

type PGDirectoryStore struct {
	db *sql.DB
}

func NewPGDirectoryStore(db *sql.DB) *PGDirectoryStore {
	return &PGDirectoryStore{db: db}
}

func (s *PGDirectoryStore) Worker(ctx context.Context, id int64) (*store.Worker, error) {
	w := &store.Worker{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, team_id FROM users WHERE id = $1 AND role = 'worker'`,
		id).Scan(&w.Name, &w.TeamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup worker %d: %w", id, err)
	}
	return w, nil
}

func (s *PGDirectoryStore) TeamManager(ctx context.Context, teamID int64) (int64, error) {
	// Teams are assumed to have one manager; when the directory holds more
	// than one, the newest assignment wins.
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE team_id = $1 AND role = 'manager'
		 ORDER BY created_at DESC LIMIT 1`,
		teamID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup manager for team %d: %w", teamID, err)
	}
	return id, nil
}
