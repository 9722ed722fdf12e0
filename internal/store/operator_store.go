package store

import (
	"context"
	"time"

	"e2estore/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OperatorStore struct{ db *gorm.DB }

func (s *Store) Operator() *OperatorStore { return &OperatorStore{db: s.DB} }

// Upsert writes the singleton operator identity in place.
func (o *OperatorStore) Upsert(ctx context.Context, publicKey string) error {
	row := domain.OperatorIdentity{
		ID:        domain.OperatorIdentityID,
		PublicKey: publicKey,
		UpdatedAt: time.Now().UTC(),
	}
	return o.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"public_key": row.PublicKey,
				"updated_at": row.UpdatedAt,
			}),
		}).
		Create(&row).Error
}

func (o *OperatorStore) Get(ctx context.Context) (*domain.OperatorIdentity, error) {
	var row domain.OperatorIdentity
	if err := o.db.WithContext(ctx).First(&row, "id = ?", domain.OperatorIdentityID).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (o *OperatorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := o.db.WithContext(ctx).Model(&domain.OperatorIdentity{}).Count(&n).Error
	return n, err
}
