// Package chat persists owner-scoped conversations and coordinates the
// analyze pipeline around a single inference call per request.
package chat

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"vericode/internal/llm"
)

var (
	ErrEmptyCode    = errors.New("code snippet is required")
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrChatNotFound = errors.New("chat not found")
)

// Service owns chat and user persistence plus the analyze orchestration.
type Service struct {
	db       *sql.DB
	analyzer llm.Analyzer
	log      *zap.Logger
	locks    keyedMutex
}

// NewService builds the chat service.
func NewService(db *sql.DB, analyzer llm.Analyzer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, analyzer: analyzer, log: logger}
}
