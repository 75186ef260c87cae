package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

// PurchaseResult balances left after a purchase
type PurchaseResult struct {
	ItemID              string `json:"itemId"`
	RemainingStars      int    `json:"remainingStars"`
	RemainingSpaceParts int    `json:"remainingSpaceParts"`
}

var (
	errAlreadyOwned = apperr.Conflict("item already purchased")
	errInsufficient = apperr.Conflict("insufficient resources")
)

// ShopService item purchases paid in parts
type ShopService struct {
	store  *repository.Store
	logger *slog.Logger
	now    Clock
}

func NewShopService(store *repository.Store, logger *slog.Logger) *ShopService {
	return &ShopService{store: store, logger: logger, now: utcNow}
}

// ListPurchased owned item ids in purchase order
func (s *ShopService) ListPurchased(ctx context.Context, user *model.User) ([]string, error) {
	ids, err := s.store.Shop.OwnedItemIDs(ctx, user.ID)
	if err != nil {
		s.logger.Error("list purchased", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load purchased items", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Purchase buys an item once. Ownership and the parts decrement commit together;
// a duplicate or an uncovered cost rolls both back.
func (s *ShopService) Purchase(ctx context.Context, user *model.User, itemID string) (*PurchaseResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperr.InvalidInput("itemId is required")
	}
	item, err := s.store.Shop.GetItem(ctx, itemID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("item not found")
		}
		s.logger.Error("purchase load item", "user_id", user.ID, "item_id", itemID, "err", err)
		return nil, apperr.Internal("failed to purchase item", err)
	}

	now := s.now()
	var res *PurchaseResult
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.LockUser(ctx, user.ID); err != nil {
			return err
		}
		added, err := tx.Shop.AddOwnership(ctx, user.ID, item.ID, now)
		if err != nil {
			return err
		}
		if !added {
			return errAlreadyOwned
		}
		paid, err := tx.Users.SpendParts(ctx, user.ID, item.Cost)
		if err != nil {
			return err
		}
		if !paid {
			return errInsufficient
		}
		after, err := tx.Users.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		err = tx.Users.LogChange(ctx, &model.CurrencyLog{
			UserID:      user.ID,
			Reason:      model.ReasonPurchase,
			Ref:         item.ID,
			Parts:       -item.Cost,
			BeforeStars: after.Stars,
			AfterStars:  after.Stars,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		res = &PurchaseResult{ItemID: item.ID, RemainingStars: after.Stars, RemainingSpaceParts: after.Parts}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			s.logger.Info("purchase rejected", "user_id", user.ID, "item_id", item.ID, "reason", appErr.Message)
			return nil, appErr
		}
		if repository.IsUniqueViolation(err) {
			s.logger.Info("purchase raced", "user_id", user.ID, "item_id", item.ID, "err", err)
			return nil, errAlreadyOwned
		}
		s.logger.Error("purchase failed", "user_id", user.ID, "item_id", item.ID, "err", err)
		return nil, apperr.Internal("failed to purchase item", err)
	}

	s.logger.Info("item purchased", "user_id", user.ID, "item_id", item.ID, "cost", item.Cost)
	return res, nil
}
