package service

import (
	"context"
	"testing"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

func newTestShop(t *testing.T) (*ShopService, *repository.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewShopService(store, discardLogger()), store
}

func giveParts(t *testing.T, store *repository.Store, userID string, parts int) {
	t.Helper()
	if err := store.Users.AddCurrency(context.Background(), userID, 0, parts); err != nil {
		t.Fatalf("add parts: %v", err)
	}
}

func TestPurchaseDeductsPartsOnce(t *testing.T) {
	ctx := context.Background()
	shop, store := newTestShop(t)
	user := newTestUser(t, store, 4)
	giveParts(t, store, user.ID, 5)

	res, err := shop.Purchase(ctx, user, "cheap")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.ItemID != "cheap" || res.RemainingSpaceParts != 3 || res.RemainingStars != 4 {
		t.Errorf("result = %+v", res)
	}

	_, err = shop.Purchase(ctx, user, "cheap")
	if !apperr.Is(err, apperr.KindConflict) || apperr.MessageOf(err) != "item already purchased" {
		t.Errorf("duplicate err = %v", err)
	}
	if u := reloadUser(t, store, user.ID); u.Parts != 3 {
		t.Errorf("parts after duplicate = %d, want 3", u.Parts)
	}

	owned, err := shop.ListPurchased(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(owned) != 1 || owned[0] != "cheap" {
		t.Errorf("owned = %v", owned)
	}
}

func TestPurchaseInsufficientRollsBack(t *testing.T) {
	ctx := context.Background()
	shop, store := newTestShop(t)
	user := newTestUser(t, store, 0)
	giveParts(t, store, user.ID, 10)

	_, err := shop.Purchase(ctx, user, "pricey")
	if !apperr.Is(err, apperr.KindConflict) || apperr.MessageOf(err) != "insufficient resources" {
		t.Fatalf("err = %v, want insufficient resources", err)
	}

	var n int64
	if err := store.DB().Model(&model.UserItem{}).Where("user_id = ?", user.ID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("ownership rows = %d, want 0", n)
	}
	if u := reloadUser(t, store, user.ID); u.Parts != 10 {
		t.Errorf("parts = %d, want 10", u.Parts)
	}
}

func TestPurchaseValidation(t *testing.T) {
	ctx := context.Background()
	shop, store := newTestShop(t)
	user := newTestUser(t, store, 0)

	if _, err := shop.Purchase(ctx, user, "  "); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("blank item err = %v", err)
	}
	if _, err := shop.Purchase(ctx, user, "ghost"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown item err = %v", err)
	}

	owned, err := shop.ListPurchased(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if owned == nil || len(owned) != 0 {
		t.Errorf("owned = %#v, want empty slice", owned)
	}
}
