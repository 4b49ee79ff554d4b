package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"ai-agent-gateway/internal/domain"
)

// SessionRepository handles session persistence
type SessionRepository struct {
	db  *DB
	ttl time.Duration
}

// NewSessionRepository creates a new session repository. ttl is the idle
// lifetime of a session; activity pushes expiry forward.
func NewSessionRepository(db *DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{db: db, ttl: ttl}
}

// Create creates a new session
func (r *SessionRepository) Create(session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(r.ttl)

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, session.ID, session.CreatedAt, session.UpdatedAt, session.ExpiresAt)

	return err
}

// Get retrieves a live session by ID; expired sessions read as missing.
func (r *SessionRepository) Get(id string) (*domain.Session, error) {
	session := &domain.Session{}

	err := r.db.QueryRow(`
		SELECT id, created_at, updated_at, expires_at
		FROM sessions WHERE id = ? AND expires_at > ?
	`, id, time.Now()).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Touch refreshes a session's updated_at and expiry
func (r *SessionRepository) Touch(id string) error {
	now := time.Now()
	_, err := r.db.Exec(`UPDATE sessions SET updated_at = ?, expires_at = ? WHERE id = ?`,
		now, now.Add(r.ttl), id)
	return err
}

// CreateMessage creates a new message
func (r *SessionRepository) CreateMessage(message *domain.StoredMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, message.ID, message.SessionID, message.Role, message.Content, message.CreatedAt)

	return err
}

// GetMessages retrieves all messages for a session in chronological order
func (r *SessionRepository) GetMessages(sessionID string) ([]*domain.StoredMessage, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.StoredMessage
	for rows.Next() {
		message := &domain.StoredMessage{}
		if err := rows.Scan(&message.ID, &message.SessionID, &message.Role,
			&message.Content, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// DeleteExpired removes sessions past their expiry; messages cascade.
func (r *SessionRepository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartSweeper runs DeleteExpired on the given interval until ctx is done.
func (r *SessionRepository) StartSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int64, err error)) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := r.DeleteExpired()
				if onSweep != nil {
					onSweep(removed, err)
				}
			}
		}
	}()
}
