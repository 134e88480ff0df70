// Package store implements chat, message, stream, document and image
// persistence over database/sql.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketingvoice/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Service wraps the relational database.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SaveChat inserts a new chat.
func (s *Service) SaveChat(ctx context.Context, chat *models.Chat) error {
	if chat.Visibility == "" {
		chat.Visibility = models.VisibilityPrivate
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats (id, user_id, title, visibility, created_at) VALUES (?, ?, ?, ?, ?)",
		chat.ID, chat.UserID, chat.Title, chat.Visibility, chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// GetChat fetches a chat by id.
func (s *Service) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, visibility, created_at FROM chats WHERE id = ?", id,
	).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Visibility, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &chat, nil
}

// ListChatsByUser returns the user's chats, newest first.
func (s *Service) ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, title, visibility, created_at FROM chats WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Visibility, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// UpdateChatVisibility flips a chat between private and public.
func (s *Service) UpdateChatVisibility(ctx context.Context, id string, visibility models.Visibility) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chats SET visibility = ? WHERE id = ?", visibility, id,
	)
	if err != nil {
		return fmt.Errorf("update chat visibility: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update chat visibility: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat removes the chat with its messages and stream registrations,
// returning the deleted record.
func (s *Service) DeleteChat(ctx context.Context, id string) (*models.Chat, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete chat: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", id); err != nil {
		return nil, fmt.Errorf("delete chat messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM streams WHERE chat_id = ?", id); err != nil {
		return nil, fmt.Errorf("delete chat streams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete chat: %w", err)
	}
	return chat, nil
}

// SaveMessage appends one message to its chat.
func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return fmt.Errorf("marshal message parts: %w", err)
	}
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	attach, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("marshal message attachments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, role, parts, attachments, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, msg.Role, string(parts), string(attach), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// GetMessagesByChat returns the chat's messages in creation order.
func (s *Service) GetMessagesByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, chat_id, role, parts, attachments, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg         models.Message
			parts       string
			attachments string
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &parts, &attachments, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(parts), &msg.Parts); err != nil {
			return nil, fmt.Errorf("unmarshal message parts: %w", err)
		}
		if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal message attachments: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// CountRecentUserMessages counts user-authored messages across all of the
// user's chats created after the cutoff. Used for daily quota checks.
func (s *Service) CountRecentUserMessages(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages m
		 JOIN chats c ON m.chat_id = c.id
		 WHERE c.user_id = ? AND m.role = ? AND m.created_at > ?`,
		userID, models.RoleUser, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent messages: %w", err)
	}
	return count, nil
}

// CreateStreamID registers a generation stream against a chat before the
// generation starts, so reconnecting clients can discover it.
func (s *Service) CreateStreamID(ctx context.Context, streamID, chatID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO streams (id, chat_id, created_at) VALUES (?, ?, ?)",
		streamID, chatID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("create stream id: %w", err)
	}
	return nil
}

// GetStreamIDsByChat returns the chat's stream ids in creation order, so
// the last element is the most recent generation attempt.
func (s *Service) GetStreamIDsByChat(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM streams WHERE chat_id = ? ORDER BY created_at ASC, id ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("get stream ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stream id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
