package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

// ApodFetcher upstream source of the daily image
type ApodFetcher interface {
	FetchAPOD(ctx context.Context) (*model.ApodData, error)
}

// ApodCache per-day cache in front of the fetcher. A miss is nil, nil.
type ApodCache interface {
	GetApod(ctx context.Context, day string) (*model.ApodData, error)
	SetApod(ctx context.Context, day string, data *model.ApodData) error
	RemoveApod(ctx context.Context, day string) error
}

// ApodPuzzle today's daily puzzle as served to the client
type ApodPuzzle struct {
	*model.Apod
	GridSize int `json:"gridSize"`
}

// ApodService daily content: upstream fetch, caching, completion, ranking
type ApodService struct {
	store       *repository.Store
	fetcher     ApodFetcher
	cache       ApodCache
	ledger      *LedgerService
	leaderboard *LeaderboardService
	logger      *slog.Logger
	now         Clock
}

func NewApodService(store *repository.Store, fetcher ApodFetcher, cache ApodCache, ledger *LedgerService, leaderboard *LeaderboardService, logger *slog.Logger) *ApodService {
	return &ApodService{
		store:       store,
		fetcher:     fetcher,
		cache:       cache,
		ledger:      ledger,
		leaderboard: leaderboard,
		logger:      logger,
		now:         utcNow,
	}
}

// WithClock replaces the time source
func (s *ApodService) WithClock(c Clock) *ApodService {
	s.now = c
	return s
}

func (s *ApodService) today() string {
	return s.now().UTC().Format(model.ApodDateLayout)
}

// Today the daily entry, read through the cache. Image entries get their
// puzzle row on first sight.
func (s *ApodService) Today(ctx context.Context) (*model.ApodData, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if data.IsImage() {
		if _, err := s.ensurePuzzle(ctx, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Puzzle today's daily puzzle; only image entries can be played
func (s *ApodService) Puzzle(ctx context.Context) (*ApodPuzzle, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if !data.IsImage() {
		return nil, apperr.InvalidInput("today's APOD is not an image")
	}
	apod, err := s.ensurePuzzle(ctx, data)
	if err != nil {
		return nil, err
	}
	return &ApodPuzzle{Apod: apod, GridSize: model.ApodGridSize}, nil
}

func (s *ApodService) load(ctx context.Context) (*model.ApodData, error) {
	day := s.today()
	if s.cache != nil {
		cached, err := s.cache.GetApod(ctx, day)
		if err != nil {
			s.logger.Warn("apod cache read failed, evicting", "day", day, "err", err)
			if err := s.cache.RemoveApod(ctx, day); err != nil {
				s.logger.Warn("apod cache evict failed", "day", day, "err", err)
			}
		} else if cached != nil {
			return cached, nil
		}
	}

	data, err := s.fetcher.FetchAPOD(ctx)
	if err != nil {
		s.logger.Error("apod fetch failed", "day", day, "err", err)
		return nil, apperr.Upstream("APOD data not available", err)
	}

	if s.cache != nil {
		if err := s.cache.SetApod(ctx, day, data); err != nil {
			s.logger.Warn("apod cache write failed", "day", day, "err", err)
		}
	}
	return data, nil
}

// ensurePuzzle stores the daily puzzle once per date; the seed is derived
// from the date so every instance agrees on it
func (s *ApodService) ensurePuzzle(ctx context.Context, data *model.ApodData) (*model.Apod, error) {
	seed := model.HashDateToSeed(data.Date)
	cfg, _ := json.Marshal(model.PuzzleConfig{GridSize: model.ApodGridSize, Seed: seed})

	apod, err := s.store.Targets.EnsureApod(ctx, &model.Apod{
		Date:         data.Date,
		Title:        data.Title,
		Description:  data.Explanation,
		ImageURL:     data.ImageSource(),
		PuzzleType:   model.DefaultPuzzleType,
		Difficulty:   model.ApodDifficulty,
		PuzzleSeed:   seed,
		PuzzleConfig: datatypes.JSON(cfg),
	})
	if err != nil {
		s.logger.Error("ensure apod puzzle", "apod_date", data.Date, "err", err)
		return nil, apperr.Internal("failed to prepare APOD puzzle", err)
	}
	return apod, nil
}

// target resolves a stored daily puzzle by date
func (s *ApodService) target(ctx context.Context, user *model.User, date string) (model.DailyTarget, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return model.DailyTarget{}, apperr.InvalidInput("date is required")
	}
	if _, err := time.Parse(model.ApodDateLayout, date); err != nil {
		return model.DailyTarget{}, apperr.InvalidInput("date must be YYYY-MM-DD")
	}
	apod, err := s.store.Targets.GetApodByDate(ctx, date)
	if err != nil {
		if repository.IsNotFound(err) {
			return model.DailyTarget{}, apperr.NotFound("APOD puzzle not found")
		}
		s.logger.Error("load apod", "user_id", user.ID, "apod_date", date, "err", err)
		return model.DailyTarget{}, apperr.Internal("failed to load APOD puzzle", err)
	}
	return model.DailyTarget{Apod: apod}, nil
}

// Complete records a clear of the daily puzzle of date
func (s *ApodService) Complete(ctx context.Context, user *model.User, date string, pt model.PlayTime) (*CompletionResult, error) {
	t, err := s.target(ctx, user, date)
	if err != nil {
		return nil, err
	}
	return s.ledger.Complete(ctx, user, t, pt)
}

// Leaderboard ranking of the daily puzzle of date
func (s *ApodService) Leaderboard(ctx context.Context, user *model.User, date string) (*model.Leaderboard, error) {
	t, err := s.target(ctx, user, date)
	if err != nil {
		return nil, err
	}
	return s.leaderboard.GetLeaderboard(ctx, user, t)
}
