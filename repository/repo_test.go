package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"space_puzzle/catalog"
	"space_puzzle/database"
	"space_puzzle/model"
)

const repoCatalog = `
version: 1
sectors:
  - { slug: near, name: Near, displayOrder: 1, requiredStars: 0 }
  - { slug: far, name: Far, displayOrder: 2, requiredStars: 10 }
objects:
  - { nasaId: N1, sector: near, title: One, rewardStars: 2 }
milestones:
  - { requiredStars: 10, rewardCredits: 5, rewardParts: 1, unlockSector: far }
badges:
  - id: first
    name: First
    rules:
      - { type: FIRST_CLEAR }
items:
  - { id: hat, name: Hat, type: cosmetic, cost: 3 }
`

var stamp = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newRepoStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    database.SQLiteDSN(filepath.Join(t.TempDir(), "repo.db")),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	c, err := catalog.Parse([]byte(repoCatalog))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := NewStore(db)
	if err := s.Catalog.Reconcile(context.Background(), c); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	return s
}

func newRepoUser(t *testing.T, s *Store) *model.User {
	t.Helper()
	u, created, err := s.Users.EnsureUser(context.Background(), &model.User{ID: uuid.NewString(), Email: "u@example.com"})
	if err != nil || !created {
		t.Fatalf("ensure user: %v created=%v", err, created)
	}
	return u
}

func count(t *testing.T, s *Store, m any) int64 {
	t.Helper()
	var n int64
	if err := s.DB().Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)

	obj, err := s.Targets.GetObjectByNasaID(ctx, "N1")
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if ok, err := s.Targets.AssignSeed(ctx, obj.ID, 77, datatypes.JSON(`{"seed":77}`)); err != nil || !ok {
		t.Fatalf("assign seed: %v %v", ok, err)
	}

	c, _ := catalog.Parse([]byte(repoCatalog))
	c.Objects[0].RewardStars = 4
	for i := 0; i < 2; i++ {
		if err := s.Catalog.Reconcile(ctx, c); err != nil {
			t.Fatalf("reconcile %d: %v", i, err)
		}
	}

	for name, m := range map[string]any{
		"sectors":    &model.Sector{},
		"objects":    &model.CelestialObject{},
		"milestones": &model.StarMilestone{},
		"badges":     &model.Badge{},
		"rules":      &model.BadgeRule{},
		"items":      &model.Item{},
	} {
		if n := count(t, s, m); n != 1 && !(name == "sectors" && n == 2) {
			t.Errorf("%s = %d rows after repeated reconcile", name, n)
		}
	}

	obj, err = s.Targets.GetObjectByNasaID(ctx, "N1")
	if err != nil {
		t.Fatalf("reload object: %v", err)
	}
	if obj.RewardStars != 4 {
		t.Errorf("reward not refreshed: %d", obj.RewardStars)
	}
	if obj.PuzzleSeed == nil || *obj.PuzzleSeed != 77 {
		t.Errorf("seed overwritten: %v", obj.PuzzleSeed)
	}
	if obj.Sector == nil || obj.Sector.Slug != "near" {
		t.Errorf("sector not preloaded: %+v", obj.Sector)
	}
}

func TestAssignSeedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)
	obj, _ := s.Targets.GetObjectByNasaID(ctx, "N1")

	if ok, _ := s.Targets.AssignSeed(ctx, obj.ID, 1, nil); !ok {
		t.Fatal("first assign lost")
	}
	if ok, _ := s.Targets.AssignSeed(ctx, obj.ID, 2, nil); ok {
		t.Error("second assign won")
	}
}

func TestAwardsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)
	u := newRepoUser(t, s)

	ms, err := s.Catalog.MilestonesCrossed(ctx, 9, 10)
	if err != nil || len(ms) != 1 {
		t.Fatalf("crossed = %v %v", ms, err)
	}
	if none, _ := s.Catalog.MilestonesCrossed(ctx, 10, 10); len(none) != 0 {
		t.Errorf("empty range crossed %v", none)
	}

	first, err := s.Catalog.AwardMilestone(ctx, u.ID, ms[0].ID, stamp)
	if err != nil || !first {
		t.Fatalf("award milestone: %v %v", first, err)
	}
	again, err := s.Catalog.AwardMilestone(ctx, u.ID, ms[0].ID, stamp)
	if err != nil || again {
		t.Errorf("repeat milestone award = %v %v", again, err)
	}
	achieved, _ := s.Catalog.AchievedMilestoneIDs(ctx, u.ID)
	if !achieved[ms[0].ID] {
		t.Error("milestone not marked achieved")
	}

	ub, ok, err := s.Catalog.AwardBadge(ctx, u.ID, "first", stamp)
	if err != nil || !ok || ub.Badge == nil || ub.Badge.Name != "First" {
		t.Fatalf("award badge = %+v %v %v", ub, ok, err)
	}
	if _, ok, err := s.Catalog.AwardBadge(ctx, u.ID, "first", stamp); err != nil || ok {
		t.Errorf("repeat badge award = %v %v", ok, err)
	}

	if ok, _ := s.Shop.AddOwnership(ctx, u.ID, "hat", stamp); !ok {
		t.Error("first ownership rejected")
	}
	if ok, _ := s.Shop.AddOwnership(ctx, u.ID, "hat", stamp); ok {
		t.Error("duplicate ownership accepted")
	}
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)
	u := newRepoUser(t, s)
	obj, _ := s.Targets.GetObjectByNasaID(ctx, "N1")
	target := model.NewCatalogTarget(obj)

	rec, err := s.Records.Acquire(ctx, u.ID, target)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if rec.Status != model.StatusInProgress || rec.CelestialObjectID == nil {
		t.Errorf("fresh record = %+v", rec)
	}
	same, err := s.Records.Acquire(ctx, u.ID, target)
	if err != nil || same.ID != rec.ID {
		t.Fatalf("second acquire = %+v %v", same, err)
	}

	best := 30.0
	flipped, err := s.Records.MarkCompleted(ctx, rec.ID, &best, stamp)
	if err != nil || !flipped {
		t.Fatalf("first flip = %v %v", flipped, err)
	}
	better := 20.0
	flipped, err = s.Records.MarkCompleted(ctx, rec.ID, &better, stamp.Add(time.Hour))
	if err != nil || flipped {
		t.Errorf("second flip = %v %v", flipped, err)
	}

	top, err := s.Records.TopTimes(ctx, target.Key(), 5)
	if err != nil || len(top) != 1 || *top[0].BestTime != 20 {
		t.Errorf("top = %+v %v", top, err)
	}
	faster, _ := s.Records.CountFaster(ctx, target.Key(), 20)
	if faster != 0 {
		t.Errorf("faster = %d", faster)
	}

	if _, err := s.Records.SaveState(ctx, u.ID, target, datatypes.JSON(`{"p":1}`), stamp); err != nil {
		t.Fatalf("save state: %v", err)
	}
	found, _ := s.Records.Find(ctx, u.ID, target.Key())
	if !found.IsCompleted() || len(found.SaveState) == 0 {
		t.Errorf("after save = %+v", found)
	}
	if ok, _ := s.Records.ClearState(ctx, u.ID, target.Key()); !ok {
		t.Error("clear state found nothing")
	}

	times, err := s.Records.CompletionTimesSince(ctx, u.ID, stamp.Add(-time.Hour))
	if err != nil || len(times) != 1 {
		t.Errorf("completion times = %v %v", times, err)
	}
}

func TestSpendPartsNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)
	u := newRepoUser(t, s)

	if err := s.Users.AddCurrency(ctx, u.ID, 0, 3); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Users.SpendParts(ctx, u.ID, 4); ok {
		t.Error("overspend accepted")
	}
	if ok, _ := s.Users.SpendParts(ctx, u.ID, 3); !ok {
		t.Error("exact spend rejected")
	}
	after, _ := s.Users.GetUser(ctx, u.ID)
	if after.Parts != 0 {
		t.Errorf("parts = %d", after.Parts)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newRepoStore(t)
	u := newRepoUser(t, s)
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Users.ApplyClear(ctx, u.ID, model.Reward{Stars: 5}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	after, _ := s.Users.GetUser(ctx, u.ID)
	if after.Stars != 0 || after.TotalClears != 0 {
		t.Errorf("rolled back user = %+v", after)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err       error
		unique    bool
		retryable bool
	}{
		{nil, false, false},
		{fmt.Errorf("x: %w", gorm.ErrDuplicatedKey), true, true},
		{&pgconn.PgError{Code: "23505"}, true, true},
		{&pgconn.PgError{Code: "40001"}, false, true},
		{&pgconn.PgError{Code: "23503"}, false, false},
		{&mysql.MySQLError{Number: 1062}, true, true},
		{&mysql.MySQLError{Number: 1213}, false, true},
		{errors.New("other"), false, false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.unique {
			t.Errorf("IsUniqueViolation(%v) = %v", tc.err, got)
		}
		if got := IsRetryable(tc.err); got != tc.retryable {
			t.Errorf("IsRetryable(%v) = %v", tc.err, got)
		}
	}
	if !IsNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)) {
		t.Error("wrapped not found missed")
	}
}
