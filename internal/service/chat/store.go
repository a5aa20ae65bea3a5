package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vericode/internal/models"
)

// FindChat returns one chat and its ordered turns. Lookups are scoped by
// owner at the query level; a chat id belonging to another user resolves
// as ErrChatNotFound.
func (s *Service) FindChat(ctx context.Context, userID int64, chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY id ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	chat.Messages = []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		chat.Messages = append(chat.Messages, m)
	}
	return &chat, rows.Err()
}

// ListChats returns the user's chat summaries ordered by last activity.
func (s *Service) ListChats(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	summaries := []models.ChatSummary{}
	for rows.Next() {
		var c models.ChatSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		summaries = append(summaries, c)
	}
	return summaries, rows.Err()
}

// SaveChat upserts the chat row and inserts any turns appended since the
// last save, all within one transaction. Saving twice without new turns
// is a no-op apart from updated_at. The upsert is owner-scoped like every
// other store operation: a chat id owned by another user yields
// ErrChatNotFound and writes nothing.
func (s *Service) SaveChat(ctx context.Context, chat *models.Chat) (err error) {
	if chat == nil || chat.ID == "" {
		return errors.New("invalid chat")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var ownerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM chats WHERE id = ?`, chat.ID,
	).Scan(&ownerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			chat.ID, chat.UserID, chat.Title, chat.CreatedAt, now,
		); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
	case err != nil:
		return fmt.Errorf("verify chat: %w", err)
	case ownerID != chat.UserID:
		// Ownership is enforced here, not just at the HTTP boundary; an
		// aggregate carrying someone else's chat id must not write.
		err = ErrChatNotFound
		return err
	default:
		if _, err = tx.ExecContext(ctx,
			`UPDATE chats SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			chat.Title, now, chat.ID, chat.UserID,
		); err != nil {
			return fmt.Errorf("update chat: %w", err)
		}
	}

	for i := range chat.Messages {
		m := &chat.Messages[i]
		if m.ID != 0 {
			continue
		}
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			chat.ID, m.Role, m.Content, m.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("message id: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save chat: %w", err)
	}
	chat.UpdatedAt = now
	return nil
}

// RenameChat sets a chat title for the specified user and returns the
// updated chat.
func (s *Service) RenameChat(ctx context.Context, userID int64, chatID, title string) (*models.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, time.Now().UTC(), chatID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("rename chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("chat rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrChatNotFound
	}
	return s.FindChat(ctx, userID, chatID)
}

// DeleteChat removes a chat and all its turns for the user. Deletion is
// terminal; there is no soft delete.
func (s *Service) DeleteChat(ctx context.Context, userID int64, chatID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("chat rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return ErrChatNotFound
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete chat: %w", err)
	}
	return nil
}
