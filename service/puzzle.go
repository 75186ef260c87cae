package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"gorm.io/datatypes"

	"space_puzzle/apperr"
	"space_puzzle/model"
	"space_puzzle/repository"
)

const seedSpace = 1_000_000_000

// SectorView sector listing for one user
type SectorView struct {
	Sector           *model.Sector  `json:"sector"`
	Locked           bool           `json:"locked"`
	CelestialObjects []ObjectStatus `json:"celestialObjects"`
}

// ObjectStatus object annotated with the user's progress
type ObjectStatus struct {
	model.CelestialObject
	Locked    bool `json:"locked"`
	IsCleared bool `json:"isCleared"`
}

// PuzzleView what the client needs to start a puzzle
type PuzzleView struct {
	*model.CelestialObject
	PuzzleSeed   int64              `json:"puzzleSeed"`
	PuzzleConfig model.PuzzleConfig `json:"puzzleConfig"`
}

// StateView stored in-progress snapshot
type StateView struct {
	SaveState     json.RawMessage `json:"saveState"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
	IsCompleted   bool            `json:"isCompleted"`
}

// ClearedObject one entry of the collection
type ClearedObject struct {
	ID          uint64     `json:"id"`
	NasaID      string     `json:"nasaId"`
	Title       string     `json:"title"`
	NameEn      string     `json:"nameEn"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Category    string     `json:"category"`
	Difficulty  string     `json:"difficulty"`
	GridSize    int        `json:"gridSize"`
	RewardStars int        `json:"rewardStars"`
	ClearedAt   *time.Time `json:"clearedAt"`
}

// PuzzleService catalogued-object puzzles: listing, seeds, save state, completion
type PuzzleService struct {
	store       *repository.Store
	ledger      *LedgerService
	leaderboard *LeaderboardService
	logger      *slog.Logger
	now         Clock
	seed        func() int64
}

func NewPuzzleService(store *repository.Store, ledger *LedgerService, leaderboard *LeaderboardService, logger *slog.Logger) *PuzzleService {
	return &PuzzleService{
		store:       store,
		ledger:      ledger,
		leaderboard: leaderboard,
		logger:      logger,
		now:         utcNow,
		seed:        func() int64 { return rand.Int63n(seedSpace) },
	}
}

// WithClock replaces the time source
func (s *PuzzleService) WithClock(c Clock) *PuzzleService {
	s.now = c
	return s
}

// ListSector sector with every object marked locked/cleared for the user
func (s *PuzzleService) ListSector(ctx context.Context, user *model.User, slug string) (*SectorView, error) {
	sector, err := s.store.Targets.GetSectorBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("sector not found")
		}
		s.logger.Error("list sector", "user_id", user.ID, "slug", slug, "err", err)
		return nil, apperr.Internal("failed to load sector", err)
	}

	ids := make([]uint64, len(sector.CelestialObjects))
	for i, o := range sector.CelestialObjects {
		ids[i] = o.ID
	}
	cleared, err := s.store.Records.CompletedObjectIDs(ctx, user.ID, ids)
	if err != nil {
		s.logger.Error("list sector progress", "user_id", user.ID, "slug", slug, "err", err)
		return nil, apperr.Internal("failed to load sector", err)
	}

	locked := user.Stars < sector.RequiredStars
	objects := make([]ObjectStatus, len(sector.CelestialObjects))
	for i, o := range sector.CelestialObjects {
		objects[i] = ObjectStatus{CelestialObject: o, Locked: locked, IsCleared: cleared[o.ID]}
	}
	return &SectorView{Sector: sector, Locked: locked, CelestialObjects: objects}, nil
}

// target resolves and gates a catalogued object
func (s *PuzzleService) target(ctx context.Context, user *model.User, nasaID string) (model.CatalogTarget, error) {
	obj, err := s.store.Targets.GetObjectByNasaID(ctx, nasaID)
	if err != nil {
		if repository.IsNotFound(err) {
			return model.CatalogTarget{}, apperr.NotFound("celestial object not found")
		}
		s.logger.Error("load object", "user_id", user.ID, "nasa_id", nasaID, "err", err)
		return model.CatalogTarget{}, apperr.Internal("failed to load celestial object", err)
	}
	t := model.NewCatalogTarget(obj)
	if !model.Unlocked(user, t) {
		return model.CatalogTarget{}, apperr.Forbidden("not enough stars to unlock this puzzle")
	}
	return t, nil
}

// GetPuzzle returns the object with its seed, assigning one on first request.
// Once stored the seed never changes; a lost assignment race returns the winner's.
func (s *PuzzleService) GetPuzzle(ctx context.Context, user *model.User, nasaID string) (*PuzzleView, error) {
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return nil, err
	}
	obj := t.Object

	if obj.PuzzleSeed == nil {
		seed := s.seed()
		cfg, _ := json.Marshal(model.PuzzleConfig{GridSize: obj.GridSize, Seed: seed})
		if _, err := s.store.Targets.AssignSeed(ctx, obj.ID, seed, datatypes.JSON(cfg)); err != nil {
			s.logger.Error("assign seed", "user_id", user.ID, "nasa_id", nasaID, "err", err)
			return nil, apperr.Internal("failed to prepare puzzle", err)
		}
		obj, err = s.store.Targets.GetObjectByNasaID(ctx, nasaID)
		if err != nil {
			s.logger.Error("reload object", "user_id", user.ID, "nasa_id", nasaID, "err", err)
			return nil, apperr.Internal("failed to prepare puzzle", err)
		}
	}

	view := &PuzzleView{CelestialObject: obj, PuzzleSeed: *obj.PuzzleSeed}
	view.PuzzleConfig = model.PuzzleConfig{GridSize: obj.GridSize, Seed: *obj.PuzzleSeed}
	if len(obj.PuzzleConfig) > 0 {
		var stored model.PuzzleConfig
		if err := json.Unmarshal(obj.PuzzleConfig, &stored); err == nil {
			view.PuzzleConfig = stored
		}
	}
	return view, nil
}

// SaveState stores the client's snapshot. A non-negative playTime is folded
// into object snapshots.
func (s *PuzzleService) SaveState(ctx context.Context, user *model.User, nasaID string, state, playTime json.RawMessage) (*model.GameRecord, error) {
	if isAbsentJSON(state) {
		return nil, apperr.InvalidInput("saveState is required")
	}
	if !json.Valid(state) {
		return nil, apperr.InvalidInput("saveState must be valid JSON")
	}
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return nil, err
	}

	if pt, ok := model.NonNegativeNumber(playTime); ok {
		state = mergePlayTime(state, pt)
	}

	rec, err := s.store.Records.SaveState(ctx, user.ID, t, datatypes.JSON(state), s.now())
	if err != nil {
		s.logger.Error("save state", "user_id", user.ID, "nasa_id", nasaID, "err", err)
		return nil, apperr.Internal("failed to save puzzle state", err)
	}
	return rec, nil
}

// GetState stored snapshot, or a null snapshot when nothing is saved
func (s *PuzzleService) GetState(ctx context.Context, user *model.User, nasaID string) (*StateView, error) {
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Records.Find(ctx, user.ID, t.Key())
	if err != nil {
		if repository.IsNotFound(err) {
			return &StateView{}, nil
		}
		s.logger.Error("get state", "user_id", user.ID, "nasa_id", nasaID, "err", err)
		return nil, apperr.Internal("failed to load puzzle state", err)
	}
	if isAbsentJSON(json.RawMessage(rec.SaveState)) {
		return &StateView{IsCompleted: rec.IsCompleted()}, nil
	}
	return &StateView{
		SaveState:     json.RawMessage(rec.SaveState),
		LastAttemptAt: rec.LastAttemptAt,
		IsCompleted:   rec.IsCompleted(),
	}, nil
}

// AbandonState clears the snapshot only; completion and best time stay
func (s *PuzzleService) AbandonState(ctx context.Context, user *model.User, nasaID string) error {
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return err
	}
	if _, err := s.store.Records.ClearState(ctx, user.ID, t.Key()); err != nil {
		s.logger.Error("abandon state", "user_id", user.ID, "nasa_id", nasaID, "err", err)
		return apperr.Internal("failed to clear puzzle state", err)
	}
	return nil
}

// Complete records a clear of a catalogued object
func (s *PuzzleService) Complete(ctx context.Context, user *model.User, nasaID string, pt model.PlayTime) (*CompletionResult, error) {
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Complete(ctx, user, t, pt)
}

// Leaderboard ranking of a catalogued object
func (s *PuzzleService) Leaderboard(ctx context.Context, user *model.User, nasaID string) (*model.Leaderboard, error) {
	t, err := s.target(ctx, user, nasaID)
	if err != nil {
		return nil, err
	}
	return s.leaderboard.GetLeaderboard(ctx, user, t)
}

// ListCleared the user's collection of cleared objects, newest first
func (s *PuzzleService) ListCleared(ctx context.Context, user *model.User) ([]ClearedObject, error) {
	recs, err := s.store.Records.ListCleared(ctx, user.ID)
	if err != nil {
		s.logger.Error("list cleared", "user_id", user.ID, "err", err)
		return nil, apperr.Internal("failed to load cleared objects", err)
	}
	out := make([]ClearedObject, 0, len(recs))
	for _, rec := range recs {
		o := rec.CelestialObject
		if o == nil {
			continue
		}
		out = append(out, ClearedObject{
			ID:          o.ID,
			NasaID:      o.NasaID,
			Title:       o.Title,
			NameEn:      o.NameEn,
			Description: o.Description,
			ImageURL:    o.ImageURL,
			Category:    o.Category,
			Difficulty:  o.Difficulty,
			GridSize:    o.GridSize,
			RewardStars: o.RewardStars,
			ClearedAt:   rec.CompletedAt,
		})
	}
	return out, nil
}

func isAbsentJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

func mergePlayTime(state json.RawMessage, playTime float64) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(state, &obj); err != nil || obj == nil {
		return state
	}
	pt, _ := json.Marshal(playTime)
	obj["playTime"] = pt
	merged, err := json.Marshal(obj)
	if err != nil {
		return state
	}
	return merged
}
