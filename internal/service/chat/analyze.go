package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"vericode/internal/models"
)

// titleLimit is the number of leading payload characters used for a new
// chat's default title.
const titleLimit = 30

// AnalysisResult is the orchestrator's response to one analyze request.
type AnalysisResult struct {
	Content string
	ChatID  string
	Title   string
}

// Analyze runs the full pipeline for one request: validate, resolve or
// create the chat, append the user turn, call the inference backend,
// append the model turn, and persist. Nothing is written until the
// inference call has succeeded, so a failed request leaves no trace; for
// an existing chat the whole pipeline holds that chat's lock.
func (s *Service) Analyze(ctx context.Context, userID int64, code, modelName, chatID string) (*AnalysisResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}

	var chat *models.Chat
	if chatID != "" {
		unlock := s.locks.lock(chatID)
		defer unlock()
		var err error
		chat, err = s.FindChat(ctx, userID, chatID)
		if err != nil {
			// An explicit id must resolve to a real, owned chat.
			return nil, err
		}
	} else {
		chat = models.NewChat(userID, deriveTitle(code))
	}

	chat.Append(models.RoleUser, code)

	analysis, err := s.analyzer.Analyze(ctx, code, modelName)
	if err != nil {
		// The in-memory user turn is discarded with the chat.
		return nil, err
	}
	chat.Append(models.RoleModel, analysis)

	if err := s.SaveChat(ctx, chat); err != nil {
		return nil, err
	}
	s.log.Info("analysis stored",
		zap.Int64("user_id", userID),
		zap.String("chat_id", chat.ID),
		zap.Int("code_len", len(code)))

	return &AnalysisResult{Content: analysis, ChatID: chat.ID, Title: chat.Title}, nil
}

func deriveTitle(code string) string {
	runes := []rune(code)
	if len(runes) <= titleLimit {
		return code
	}
	return string(runes[:titleLimit]) + "..."
}
