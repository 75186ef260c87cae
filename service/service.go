package service

import (
	"context"
	"log/slog"
	"time"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

// TopN size of every leaderboard
const TopN = 5

// Clock time source, swapped in tests
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

type LeaderboardService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewLeaderboardService(store *repository.Store, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		logger: logger,
	}
}

// GetLeaderboard top players of a target plus the caller's rank.
// Gated targets are re-checked against the caller's current stars.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, user *model.User, target model.PuzzleTarget) (*model.Leaderboard, error) {
	if !model.Unlocked(user, target) {
		return nil, apperr.Forbidden("not enough stars to unlock this puzzle")
	}

	top, err := s.GetTopN(ctx, target.Key(), TopN)
	if err != nil {
		return nil, err
	}
	mine, err := s.GetPlayerRank(ctx, user.ID, target.Key())
	if err != nil {
		return nil, err
	}
	return &model.Leaderboard{TopPlayers: top, MyRank: mine}, nil
}

// GetTopN fastest n players, ranked by position
func (s *LeaderboardService) GetTopN(ctx context.Context, key model.TargetKey, n int) ([]*model.RankInfo, error) {
	if n <= 0 {
		return []*model.RankInfo{}, nil
	}

	recs, err := s.store.Records.TopTimes(ctx, key, n)
	if err != nil {
		s.logger.Error("leaderboard top", "target", key.String(), "err", err)
		return nil, apperr.Internal("failed to load leaderboard", err)
	}

	result := make([]*model.RankInfo, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if rec.BestTime == nil {
			continue
		}
		result = append(result, &model.RankInfo{
			UserID:      rec.UserID,
			Nickname:    rec.User.DisplayName(),
			PlayTime:    *rec.BestTime,
			Rank:        i + 1,
			CompletedAt: rec.CompletedAt,
		})
	}
	return result, nil
}

// GetPlayerRank 1 + number of completed records with a strictly smaller best
// time. Players tied with the caller do not push the caller down. Nil when the
// caller has no ranked time.
func (s *LeaderboardService) GetPlayerRank(ctx context.Context, userID string, key model.TargetKey) (*model.RankInfo, error) {
	rec, err := s.store.Records.Find(ctx, userID, key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		s.logger.Error("leaderboard own record", "user_id", userID, "target", key.String(), "err", err)
		return nil, apperr.Internal("failed to load leaderboard", err)
	}
	if !rec.IsCompleted() || rec.BestTime == nil {
		return nil, nil
	}

	better, err := s.store.Records.CountFaster(ctx, key, *rec.BestTime)
	if err != nil {
		s.logger.Error("leaderboard rank", "user_id", userID, "target", key.String(), "err", err)
		return nil, apperr.Internal("failed to load leaderboard", err)
	}

	nickname := ""
	u, err := s.store.Users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("leaderboard nickname", "user_id", userID, "err", err)
	} else {
		nickname = u.DisplayName()
	}
	return &model.RankInfo{
		UserID:      userID,
		Nickname:    nickname,
		PlayTime:    *rec.BestTime,
		Rank:        int(better) + 1,
		CompletedAt: rec.CompletedAt,
	}, nil
}
