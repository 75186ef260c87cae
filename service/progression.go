package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"space_puzzle/apperr"
	"space_puzzle/catalog"
	"space_puzzle/model"
	"space_puzzle/repository"
)

const (
	DefaultActivityDays = 30
	MaxActivityDays     = 365
)

// Profile aggregate stats of one user
type Profile struct {
	Nickname       *string              `json:"nickname"`
	Stars          int                  `json:"stars"`
	Credits        int                  `json:"credits"`
	Parts          int                  `json:"parts"`
	TotalClears    int                  `json:"totalClears"`
	Badges         []model.AwardedBadge `json:"badges"`
	RecentActivity []model.ActivityDay  `json:"recentActivity"`
}

// Resources currency balances and unlocked sectors
type Resources struct {
	Stars           int      `json:"stars"`
	Credits         int      `json:"credits"`
	SpaceParts      int      `json:"spaceParts"`
	UnlockedSectors []uint64 `json:"unlockedSectors"`
}

// MilestoneBoard milestone ladder annotated for one user
type MilestoneBoard struct {
	Milestones    []model.MilestoneStatus `json:"milestones"`
	NextMilestone *model.NextMilestone    `json:"nextMilestone"`
}

// ProgressionService read-only views over the ledger
type ProgressionService struct {
	store   *repository.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
	now     Clock
}

func NewProgressionService(store *repository.Store, c *catalog.Catalog, logger *slog.Logger) *ProgressionService {
	return &ProgressionService{
		store:   store,
		catalog: c,
		logger:  logger,
		now:     utcNow,
	}
}

// WithClock replaces the time source
func (s *ProgressionService) WithClock(c Clock) *ProgressionService {
	s.now = c
	return s
}

// ClampDays parses the activity window; missing or malformed means the default
func ClampDays(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultActivityDays
	}
	return clampDays(n)
}

func clampDays(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxActivityDays {
		return MaxActivityDays
	}
	return n
}

// Profile stats, badges and a dense per-day activity series ending today (UTC)
func (s *ProgressionService) Profile(ctx context.Context, user *model.User, days int) (*Profile, error) {
	days = clampDays(days)

	ubs, err := s.store.Catalog.UserBadges(ctx, user.ID)
	if err != nil {
		s.logger.Error("profile badges", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load profile", err)
	}
	badges := make([]model.AwardedBadge, 0, len(ubs))
	for i := range ubs {
		badges = append(badges, model.NewAwardedBadge(&ubs[i]))
	}

	today := truncateDay(s.now())
	since := today.AddDate(0, 0, -(days - 1))
	times, err := s.store.Records.CompletionTimesSince(ctx, user.ID, since)
	if err != nil {
		s.logger.Error("profile activity", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load profile", err)
	}

	return &Profile{
		Nickname:       user.Nickname,
		Stars:          user.Stars,
		Credits:        user.Credits,
		Parts:          user.Parts,
		TotalClears:    user.TotalClears,
		Badges:         badges,
		RecentActivity: denseActivity(times, since, days),
	}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// denseActivity one entry per day from since, zero-count days included
func denseActivity(times []time.Time, since time.Time, days int) []model.ActivityDay {
	counts := make(map[string]int, len(times))
	for _, t := range times {
		counts[t.UTC().Format(model.ApodDateLayout)]++
	}
	out := make([]model.ActivityDay, days)
	for i := 0; i < days; i++ {
		key := since.AddDate(0, 0, i).Format(model.ApodDateLayout)
		out[i] = model.ActivityDay{Date: key, Count: counts[key]}
	}
	return out
}

// Resources balances plus the sectors the user's stars unlock
func (s *ProgressionService) Resources(ctx context.Context, user *model.User) (*Resources, error) {
	ids, err := s.store.Targets.UnlockedSectorIDs(ctx, user.Stars)
	if err != nil {
		s.logger.Error("resources", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load resources", err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return &Resources{
		Stars:           user.Stars,
		Credits:         user.Credits,
		SpaceParts:      user.Parts,
		UnlockedSectors: ids,
	}, nil
}

// Milestones the ladder with achieved flags and the next unreached threshold.
// A store holding fewer milestones than the catalog is reconciled first.
func (s *ProgressionService) Milestones(ctx context.Context, user *model.User) (*MilestoneBoard, error) {
	if err := s.healCatalog(ctx); err != nil {
		s.logger.Error("milestone catalog reconcile", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load milestones", err)
	}

	ms, err := s.store.Catalog.Milestones(ctx)
	if err != nil {
		s.logger.Error("milestones", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load milestones", err)
	}
	achieved, err := s.store.Catalog.AchievedMilestoneIDs(ctx, user.ID)
	if err != nil {
		s.logger.Error("achieved milestones", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load milestones", err)
	}

	board := &MilestoneBoard{Milestones: make([]model.MilestoneStatus, 0, len(ms))}
	for _, m := range ms {
		st := model.MilestoneStatus{
			RequiredStars: m.RequiredStars,
			Credits:       m.RewardCredits,
			SpaceParts:    m.RewardParts,
			Achieved:      achieved[m.ID],
		}
		if m.UnlockSector != nil {
			st.SectorUnlock = &model.SectorRef{ID: m.UnlockSector.ID, Name: m.UnlockSector.Name}
		}
		board.Milestones = append(board.Milestones, st)

		if board.NextMilestone == nil && m.RequiredStars > user.Stars {
			board.NextMilestone = &model.NextMilestone{
				RequiredStars: m.RequiredStars,
				StarsNeeded:   m.RequiredStars - user.Stars,
			}
		}
	}
	return board, nil
}

func (s *ProgressionService) healCatalog(ctx context.Context) error {
	if s.catalog == nil {
		return nil
	}
	n, err := s.store.Catalog.CountMilestones(ctx)
	if err != nil {
		return err
	}
	if n >= int64(len(s.catalog.Milestones)) {
		return nil
	}
	s.logger.Warn("milestone catalog incomplete, reconciling",
		"stored", n, "catalog", len(s.catalog.Milestones), "version", s.catalog.Version)
	return s.store.Catalog.Reconcile(ctx, s.catalog)
}
