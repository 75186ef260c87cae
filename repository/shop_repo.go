package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"space_puzzle/model"
)

type ShopRepository interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
	OwnedItemIDs(ctx context.Context, userID string) ([]string, error)
	AddOwnership(ctx context.Context, userID, itemID string, at time.Time) (bool, error)
}

type shopRepository struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, fmt.Errorf("get item %q: %w", id, err)
	}
	return &it, nil
}

// OwnedItemIDs purchase order
func (r *shopRepository) OwnedItemIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.UserItem{}).
		Where("user_id = ?", userID).
		Order("purchased_at ASC, id ASC").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("owned items: %w", err)
	}
	return ids, nil
}

// AddOwnership false when the user already owns the item
func (r *shopRepository) AddOwnership(ctx context.Context, userID, itemID string, at time.Time) (bool, error) {
	row := model.UserItem{UserID: userID, ItemID: itemID, PurchasedAt: at}
	res := r.db.WithContext(ctx).Clauses(doNothingOn("user_id", "item_id")).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("add ownership: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
