package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shanmukhchodagam/workhub/internal/store"
)

type PGChatStore struct {
	db *sql.DB
}

func NewPGChatStore(db *sql.DB) *PGChatStore {
	return &PGChatStore{db: db}
}

// CurrentSession finds or creates the current session for (worker, team).
// A partial unique index on (worker_id, team_id) WHERE current makes the
// insert race-safe: concurrent creators collide on the index and both
// converge on the surviving row.
func (s *PGChatStore) CurrentSession(ctx context.Context, workerID, teamID int64) (*store.Session, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (worker_id, team_id, current, created_at)
		 VALUES ($1, $2, TRUE, NOW())
		 ON CONFLICT (worker_id, team_id) WHERE current DO NOTHING`,
		workerID, teamID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := &store.Session{WorkerID: workerID, TeamID: teamID, Current: true}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM chat_sessions
		 WHERE worker_id = $1 AND team_id = $2 AND current
		 ORDER BY created_at DESC LIMIT 1`,
		workerID, teamID).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return sess, nil
}

func (s *PGChatStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	msg.CreatedAt = time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (session_id, sender_role, sender_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		msg.SessionID, msg.SenderRole, msg.SenderID, msg.Content, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *PGChatStore) ListMessages(ctx context.Context, sessionID int64) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender_role, sender_id, content, created_at
		 FROM messages WHERE session_id = $1 ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SenderRole, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
