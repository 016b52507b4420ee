package repository

import (
	"fmt"

	"gorm.io/gorm"

	"chartqa/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(turn *model.Conversation) error {
	if err := r.db.Create(turn).Error; err != nil {
		return fmt.Errorf("create conversation turn failed: %w", err)
	}
	return nil
}

// ListBySessionID returns the session's turns oldest first. A positive limit
// caps the result to the most recent turns; limit <= 0 returns all of them.
func (r *ConversationRepository) ListBySessionID(sessionID string, limit int) ([]model.Conversation, error) {
	var turns []model.Conversation
	query := r.db.Where("session_id = ?", sessionID)

	if limit > 0 {
		// Fetch the newest N, then flip back to oldest-first so a capped
		// listing still ends with the latest turn.
		if err := query.Order("created_at DESC").Limit(limit).Find(&turns).Error; err != nil {
			return nil, fmt.Errorf("list conversation turns failed: %w", err)
		}
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
		return turns, nil
	}

	if err := query.Order("created_at ASC").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list conversation turns failed: %w", err)
	}
	return turns, nil
}
