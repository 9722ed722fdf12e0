package store

import (
	"context"

	"e2estore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecordStore struct{ db *gorm.DB }

func (s *Store) Records() *RecordStore { return &RecordStore{db: s.DB} }

func (r *RecordStore) Append(ctx context.Context, rec *domain.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListByConversation returns records oldest first.
func (r *RecordStore) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Record, error) {
	var recs []domain.Record
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
