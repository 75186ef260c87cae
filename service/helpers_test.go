package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"space_puzzle/catalog"
	"space_puzzle/database"
	"space_puzzle/model"
	"space_puzzle/repository"
)

const testCatalog = `
version: 1
sectors:
  - { slug: inner, name: Inner, displayOrder: 1, requiredStars: 0 }
  - { slug: outer, name: Outer, displayOrder: 2, requiredStars: 15 }
objects:
  - { nasaId: OBJ-A, sector: inner, title: A, gridSize: 3, rewardStars: 5, displayOrder: 1 }
  - { nasaId: OBJ-B, sector: inner, title: B, gridSize: 4, rewardStars: 3, displayOrder: 2 }
  - { nasaId: OBJ-OUT, sector: outer, title: Out, gridSize: 5, rewardStars: 2, displayOrder: 1 }
milestones:
  - { requiredStars: 15, rewardCredits: 100, rewardParts: 2, unlockSector: outer }
  - { requiredStars: 16, rewardCredits: 50, rewardParts: 1 }
  - { requiredStars: 40, rewardCredits: 500, rewardParts: 5 }
badges:
  - id: first_clear
    name: First
    rules:
      - { type: FIRST_CLEAR }
  - id: clear_2
    name: Two
    rules:
      - { type: TOTAL_CLEAR, count: 2 }
  - id: speed_60
    name: Fast
    rules:
      - { type: FAST_CLEAR, seconds: 60 }
items:
  - { id: cheap, name: Cheap, type: background, cost: 2 }
  - { id: pricey, name: Pricey, type: robot, cost: 100 }
`

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func testCatalogFixture(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse test catalog: %v", err)
	}
	return c
}

// newTestStore opens a migrated SQLite store seeded with the test catalog
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    database.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := repository.NewStore(db)
	if err := store.Catalog.Reconcile(context.Background(), testCatalogFixture(t)); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	return store
}

func newTestUser(t *testing.T, store *repository.Store, stars int) *model.User {
	t.Helper()
	nick := "pilot"
	u, _, err := store.Users.EnsureUser(context.Background(), &model.User{
		ID:       uuid.NewString(),
		Email:    "pilot@example.com",
		Nickname: &nick,
		Stars:    stars,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func reloadUser(t *testing.T, store *repository.Store, id string) *model.User {
	t.Helper()
	u, err := store.Users.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func catalogTarget(t *testing.T, store *repository.Store, nasaID string) model.CatalogTarget {
	t.Helper()
	obj, err := store.Targets.GetObjectByNasaID(context.Background(), nasaID)
	if err != nil {
		t.Fatalf("load %s: %v", nasaID, err)
	}
	return model.NewCatalogTarget(obj)
}

func played(seconds float64) model.PlayTime {
	return model.NewPlayTime(seconds)
}

func countRecords(t *testing.T, store *repository.Store, userID string) int64 {
	t.Helper()
	var n int64
	if err := store.DB().Model(&model.GameRecord{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	return n
}
