package service

import (
	"context"
	"testing"
	"time"

	"space_puzzle/model"
)

func TestClampDays(t *testing.T) {
	cases := map[string]int{
		"":      DefaultActivityDays,
		"abc":   DefaultActivityDays,
		"7":     7,
		" 12 ":  12,
		"0":     1,
		"-4":    1,
		"365":   365,
		"10000": MaxActivityDays,
	}
	for raw, want := range cases {
		if got := ClampDays(raw); got != want {
			t.Errorf("ClampDays(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestProfileDenseActivity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := testNow.Add(-48 * time.Hour)
	ledger := NewLedgerService(store, discardLogger()).WithClock(func() time.Time { return now })
	progression := NewProgressionService(store, testCatalogFixture(t), discardLogger()).WithClock(fixedClock(testNow))
	user := newTestUser(t, store, 0)

	if _, err := ledger.Complete(ctx, user, catalogTarget(t, store, "OBJ-A"), played(10)); err != nil {
		t.Fatalf("complete A: %v", err)
	}
	now = testNow
	if _, err := ledger.Complete(ctx, reloadUser(t, store, user.ID), catalogTarget(t, store, "OBJ-B"), played(90)); err != nil {
		t.Fatalf("complete B: %v", err)
	}

	p, err := progression.Profile(ctx, reloadUser(t, store, user.ID), 3)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Stars != 8 || p.TotalClears != 2 {
		t.Errorf("stars %d clears %d, want 8 and 2", p.Stars, p.TotalClears)
	}
	if p.Nickname == nil || *p.Nickname != "pilot" {
		t.Errorf("nickname = %v", p.Nickname)
	}
	want := []model.ActivityDay{
		{Date: "2026-03-12", Count: 1},
		{Date: "2026-03-13", Count: 0},
		{Date: "2026-03-14", Count: 1},
	}
	if len(p.RecentActivity) != len(want) {
		t.Fatalf("activity = %+v", p.RecentActivity)
	}
	for i := range want {
		if p.RecentActivity[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, p.RecentActivity[i], want[i])
		}
	}
	// first_clear and speed_60 on the first run, clear_2 on the second
	if len(p.Badges) != 3 {
		t.Errorf("badges = %+v", p.Badges)
	}

	narrow, err := progression.Profile(ctx, user, 1)
	if err != nil {
		t.Fatalf("narrow profile: %v", err)
	}
	if len(narrow.RecentActivity) != 1 || narrow.RecentActivity[0].Count != 1 {
		t.Errorf("one day window = %+v", narrow.RecentActivity)
	}
}

func TestResourcesUnlockedSectors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	progression := NewProgressionService(store, testCatalogFixture(t), discardLogger())

	low, err := progression.Resources(ctx, newTestUser(t, store, 3))
	if err != nil {
		t.Fatalf("resources: %v", err)
	}
	if len(low.UnlockedSectors) != 1 {
		t.Errorf("unlocked at 3 stars = %v", low.UnlockedSectors)
	}

	high, err := progression.Resources(ctx, newTestUser(t, store, 15))
	if err != nil {
		t.Fatalf("resources: %v", err)
	}
	if len(high.UnlockedSectors) != 2 || high.Stars != 15 {
		t.Errorf("resources at 15 stars = %+v", high)
	}
}

func TestMilestonesAchievedAndNext(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ledger := NewLedgerService(store, discardLogger()).WithClock(fixedClock(testNow))
	progression := NewProgressionService(store, testCatalogFixture(t), discardLogger())
	user := newTestUser(t, store, 11)

	if _, err := ledger.Complete(ctx, user, catalogTarget(t, store, "OBJ-A"), played(10)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	user = reloadUser(t, store, user.ID)

	board, err := progression.Milestones(ctx, user)
	if err != nil {
		t.Fatalf("milestones: %v", err)
	}
	if len(board.Milestones) != 3 {
		t.Fatalf("milestones = %+v", board.Milestones)
	}
	if !board.Milestones[0].Achieved || !board.Milestones[1].Achieved || board.Milestones[2].Achieved {
		t.Errorf("achieved flags = %+v", board.Milestones)
	}
	if board.Milestones[0].SectorUnlock == nil || board.Milestones[0].SectorUnlock.Name != "Outer" {
		t.Errorf("sector unlock = %+v", board.Milestones[0].SectorUnlock)
	}
	if board.NextMilestone == nil || board.NextMilestone.RequiredStars != 40 || board.NextMilestone.StarsNeeded != 24 {
		t.Errorf("next = %+v", board.NextMilestone)
	}
}

func TestMilestonesHealsIncompleteCatalog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	progression := NewProgressionService(store, testCatalogFixture(t), discardLogger())

	if err := store.DB().Where("required_stars = ?", 40).Delete(&model.StarMilestone{}).Error; err != nil {
		t.Fatalf("delete milestone: %v", err)
	}

	board, err := progression.Milestones(ctx, newTestUser(t, store, 100))
	if err != nil {
		t.Fatalf("milestones: %v", err)
	}
	if len(board.Milestones) != 3 {
		t.Errorf("milestones after heal = %d, want 3", len(board.Milestones))
	}
	if board.NextMilestone != nil {
		t.Errorf("next = %+v, want none past the top", board.NextMilestone)
	}
}
