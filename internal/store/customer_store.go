package store

import (
	"context"

	"e2estore/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerStore struct{ db *gorm.DB }

func (s *Store) Customers() *CustomerStore { return &CustomerStore{db: s.DB} }

func (c *CustomerStore) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return c.db.WithContext(ctx).Create(customer).Error
}

func (c *CustomerStore) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	if err := c.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (c *CustomerStore) GetByAuthAccount(ctx context.Context, authAccountID string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := c.db.WithContext(ctx).First(&customer, "auth_account_id = ?", authAccountID).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (c *CustomerStore) UpdatePublicKey(ctx context.Context, id uuid.UUID, publicKey string) error {
	return c.update(ctx, id, map[string]any{"public_key": publicKey})
}

func (c *CustomerStore) LinkAuthAccount(ctx context.Context, id uuid.UUID, authAccountID string) error {
	return c.update(ctx, id, map[string]any{"auth_account_id": authAccountID})
}

func (c *CustomerStore) update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := c.db.WithContext(ctx).Model(&domain.Customer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
