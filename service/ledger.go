package service

import (
	"context"
	"log/slog"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

const defaultCompleteAttempts = 3

// CompletionResult outcome of one completion request
type CompletionResult struct {
	IsFirstClear    bool
	Reward          model.Reward
	MilestoneReward model.Reward
	NewBadges       []model.AwardedBadge
	User            *model.User
	Record          *model.GameRecord
}

// LedgerService records completions and grants their rewards in one transaction
type LedgerService struct {
	store    *repository.Store
	recorder CompletionRecorder
	rewards  RewardEngine
	logger   *slog.Logger
	now      Clock
	attempts int
}

func NewLedgerService(store *repository.Store, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		logger:   logger,
		now:      utcNow,
		attempts: defaultCompleteAttempts,
	}
}

// WithClock replaces the time source
func (s *LedgerService) WithClock(c Clock) *LedgerService {
	s.now = c
	return s
}

// Complete records a clear of target by user. The gate is checked before any
// transaction is opened. A transaction that loses a race on a unique key or a
// lock is re-run; the re-run sees the winner's row and reports a replay.
func (s *LedgerService) Complete(ctx context.Context, user *model.User, target model.PuzzleTarget, pt model.PlayTime) (*CompletionResult, error) {
	if !model.Unlocked(user, target) {
		return nil, apperr.Forbidden("not enough stars to unlock this puzzle")
	}

	var (
		res *CompletionResult
		err error
	)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		res, err = s.completeOnce(ctx, user.ID, target, pt)
		if err == nil {
			return res, nil
		}
		if !repository.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		s.logger.Warn("completion lost a race, retrying",
			"user_id", user.ID, "target", target.Describe(), "attempt", attempt, "err", err)
	}

	if repository.IsRetryable(err) {
		s.logger.Error("completion conflict", "user_id", user.ID, "target", target.Describe(), "err", err)
		return nil, apperr.Wrap(apperr.KindConflict, "completion conflicted with a concurrent request", err)
	}
	s.logger.Error("completion failed", "user_id", user.ID, "target", target.Describe(), "err", err)
	return nil, apperr.Internal("failed to record completion", err)
}

func (s *LedgerService) completeOnce(ctx context.Context, userID string, target model.PuzzleTarget, pt model.PlayTime) (*CompletionResult, error) {
	now := s.now()
	var (
		res        *CompletionResult
		previous   model.CompletionStatus
		milestones []int
	)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		before, err := tx.Users.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		c, err := s.recorder.Record(ctx, tx, userID, target, pt, now)
		if err != nil {
			return err
		}
		previous = c.Previous
		res = &CompletionResult{
			IsFirstClear: c.FirstClear,
			NewBadges:    []model.AwardedBadge{},
			User:         before,
			Record:       c.Record,
		}
		if !c.FirstClear {
			return nil
		}

		g, err := s.rewards.Grant(ctx, tx, before, target, pt, now)
		if err != nil {
			return err
		}
		res.Reward = g.Reward
		res.MilestoneReward = g.MilestoneReward
		res.NewBadges = g.NewBadges
		res.User = g.User
		for _, m := range g.Milestones {
			milestones = append(milestones, m.RequiredStars)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.IsFirstClear {
		s.logger.Info("first clear",
			"user_id", userID, "target", target.Describe(), "previous_status", previous,
			"reward_stars", res.Reward.Stars, "reward_parts", res.Reward.Parts,
			"milestones", milestones, "milestone_credits", res.MilestoneReward.Credits,
			"badges", len(res.NewBadges))
	} else {
		s.logger.Debug("replay", "user_id", userID, "target", target.Describe(), "previous_status", previous)
	}
	return res, nil
}
