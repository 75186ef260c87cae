package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"space_puzzle/model"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	LockUser(ctx context.Context, id string) (*model.User, error)
	EnsureUser(ctx context.Context, u *model.User) (*model.User, bool, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	ApplyClear(ctx context.Context, id string, reward model.Reward) error
	AddCurrency(ctx context.Context, id string, credits, parts int) error
	SpendParts(ctx context.Context, id string, cost int) (bool, error)
	LogChange(ctx context.Context, entry *model.CurrencyLog) error
	ChangeLog(ctx context.Context, id string) ([]model.CurrencyLog, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetUser load a user by id
func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// LockUser load a user and hold its row lock until the transaction ends
func (r *userRepository) LockUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &u, nil
}

// EnsureUser create on first sight. Reports whether this call created the row.
func (r *userRepository) EnsureUser(ctx context.Context, u *model.User) (*model.User, bool, error) {
	row := *u
	res := r.db.WithContext(ctx).Clauses(doNothingOn("id")).Create(&row)
	if res.Error != nil {
		return nil, false, fmt.Errorf("ensure user: %w", res.Error)
	}
	stored, err := r.GetUser(ctx, u.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1, nil
}

// UpdateProfile refresh provider-owned fields, never touches currencies
func (r *userRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"email":     u.Email,
			"nickname":  u.Nickname,
			"google_id": u.GoogleID,
		}).Error
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// ApplyClear first-clear increments: total_clears by one and the target reward
func (r *userRepository) ApplyClear(ctx context.Context, id string, reward model.Reward) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_clears": gorm.Expr("total_clears + ?", 1),
			"stars":        gorm.Expr("stars + ?", reward.Stars),
			"credits":      gorm.Expr("credits + ?", reward.Credits),
			"parts":        gorm.Expr("parts + ?", reward.Parts),
		})
	if res.Error != nil {
		return fmt.Errorf("apply clear: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("apply clear: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// AddCurrency atomic credit/part increment
func (r *userRepository) AddCurrency(ctx context.Context, id string, credits, parts int) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"credits": gorm.Expr("credits + ?", credits),
			"parts":   gorm.Expr("parts + ?", parts),
		}).Error
	if err != nil {
		return fmt.Errorf("add currency: %w", err)
	}
	return nil
}

// SpendParts decrement only if the balance covers cost
func (r *userRepository) SpendParts(ctx context.Context, id string, cost int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND parts >= ?", id, cost).
		Update("parts", gorm.Expr("parts - ?", cost))
	if res.Error != nil {
		return false, fmt.Errorf("spend parts: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// LogChange appends a balance change record
func (r *userRepository) LogChange(ctx context.Context, entry *model.CurrencyLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("log change: %w", err)
	}
	return nil
}

// ChangeLog balance changes of a user, oldest first
func (r *userRepository) ChangeLog(ctx context.Context, id string) ([]model.CurrencyLog, error) {
	var logs []model.CurrencyLog
	err := r.db.WithContext(ctx).Where("user_id = ?", id).Order("id ASC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("change log: %w", err)
	}
	return logs, nil
}
