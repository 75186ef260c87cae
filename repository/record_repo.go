package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"space_puzzle/model"
)

var recordKeyColumns = []string{"user_id", "target_id", "puzzle_type"}

type RecordRepository interface {
	Find(ctx context.Context, userID string, key model.TargetKey) (*model.GameRecord, error)
	Acquire(ctx context.Context, userID string, target model.PuzzleTarget) (*model.GameRecord, error)
	MarkCompleted(ctx context.Context, id uint64, best *float64, at time.Time) (bool, error)
	SaveState(ctx context.Context, userID string, target model.PuzzleTarget, state datatypes.JSON, at time.Time) (*model.GameRecord, error)
	ClearState(ctx context.Context, userID string, key model.TargetKey) (bool, error)
	CompletedObjectIDs(ctx context.Context, userID string, objectIDs []uint64) (map[uint64]bool, error)
	ListCleared(ctx context.Context, userID string) ([]model.GameRecord, error)
	CompletionTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	TopTimes(ctx context.Context, key model.TargetKey, limit int) ([]model.GameRecord, error)
	CountFaster(ctx context.Context, key model.TargetKey, best float64) (int64, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) byKey(db *gorm.DB, userID string, key model.TargetKey) *gorm.DB {
	return db.Where("user_id = ? AND target_id = ? AND puzzle_type = ?", userID, key.TargetID, key.PuzzleType)
}

// Find the record of a user on a target
func (r *recordRepository) Find(ctx context.Context, userID string, key model.TargetKey) (*model.GameRecord, error) {
	var rec model.GameRecord
	if err := r.byKey(r.db.WithContext(ctx), userID, key).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("find record %s: %w", key, err)
	}
	return &rec, nil
}

// Acquire makes sure the record row exists and locks it for the rest of the transaction.
// The insert relies on the unique key, so racing callers end up on the same row.
func (r *recordRepository) Acquire(ctx context.Context, userID string, target model.PuzzleTarget) (*model.GameRecord, error) {
	key := target.Key()
	row := model.GameRecord{
		UserID:     userID,
		TargetID:   key.TargetID,
		PuzzleType: key.PuzzleType,
		Status:     model.StatusInProgress,
	}
	target.Attach(&row)
	if err := r.db.WithContext(ctx).Clauses(doNothingOn(recordKeyColumns...)).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("acquire record %s: %w", key, err)
	}

	var rec model.GameRecord
	if err := r.byKey(r.db.WithContext(ctx).Clauses(forUpdate()), userID, key).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("acquire record %s: lock: %w", key, err)
	}
	return &rec, nil
}

// MarkCompleted flips the record to completed. The flip is conditional on the
// stored status, so exactly one caller ever observes the first clear.
func (r *recordRepository) MarkCompleted(ctx context.Context, id uint64, best *float64, at time.Time) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.GameRecord{}).
		Where("id = ? AND status <> ?", id, model.StatusCompleted).
		Updates(map[string]interface{}{
			"status":       model.StatusCompleted,
			"completed_at": at,
			"best_time":    best,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark completed: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	err := db.Model(&model.GameRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed_at": at,
			"best_time":    best,
		}).Error
	if err != nil {
		return false, fmt.Errorf("mark completed: replay: %w", err)
	}
	return false, nil
}

// SaveState upsert the in-progress snapshot; completion fields are left alone
func (r *recordRepository) SaveState(ctx context.Context, userID string, target model.PuzzleTarget, state datatypes.JSON, at time.Time) (*model.GameRecord, error) {
	key := target.Key()
	row := model.GameRecord{
		UserID:        userID,
		TargetID:      key.TargetID,
		PuzzleType:    key.PuzzleType,
		Status:        model.StatusInProgress,
		SaveState:     state,
		LastAttemptAt: &at,
	}
	target.Attach(&row)
	err := r.db.WithContext(ctx).
		Clauses(updateOn(recordKeyColumns, "save_state", "last_attempt_at", "updated_at")).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("save state %s: %w", key, err)
	}
	return r.Find(ctx, userID, key)
}

// ClearState drop the snapshot only. False when there was no record.
func (r *recordRepository) ClearState(ctx context.Context, userID string, key model.TargetKey) (bool, error) {
	res := r.byKey(r.db.WithContext(ctx).Model(&model.GameRecord{}), userID, key).
		Update("save_state", gorm.Expr("NULL"))
	if res.Error != nil {
		return false, fmt.Errorf("clear state %s: %w", key, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CompletedObjectIDs which of the given objects the user has cleared
func (r *recordRepository) CompletedObjectIDs(ctx context.Context, userID string, objectIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(objectIDs))
	if len(objectIDs) == 0 {
		return out, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.GameRecord{}).
		Where("user_id = ? AND status = ? AND celestial_object_id IN ?", userID, model.StatusCompleted, objectIDs).
		Pluck("celestial_object_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("completed objects: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ListCleared completed catalog records, newest completion first
func (r *recordRepository) ListCleared(ctx context.Context, userID string) ([]model.GameRecord, error) {
	var recs []model.GameRecord
	err := r.db.WithContext(ctx).
		Preload("CelestialObject").
		Where("user_id = ? AND status = ? AND target_kind = ?", userID, model.StatusCompleted, model.KindCatalog).
		Order("completed_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list cleared: %w", err)
	}
	return recs, nil
}

// CompletionTimesSince completion timestamps of the user's records at or after since
func (r *recordRepository) CompletionTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	var recs []model.GameRecord
	err := r.db.WithContext(ctx).
		Select("completed_at").
		Where("user_id = ? AND status = ? AND completed_at IS NOT NULL AND completed_at >= ?", userID, model.StatusCompleted, since).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("completion times: %w", err)
	}
	out := make([]time.Time, 0, len(recs))
	for _, rec := range recs {
		if rec.CompletedAt != nil {
			out = append(out, *rec.CompletedAt)
		}
	}
	return out, nil
}

func (r *recordRepository) ranked(db *gorm.DB, key model.TargetKey) *gorm.DB {
	return db.Model(&model.GameRecord{}).
		Where("target_id = ? AND puzzle_type = ? AND status = ? AND best_time IS NOT NULL",
			key.TargetID, key.PuzzleType, model.StatusCompleted)
}

// TopTimes fastest records: best time ascending, earlier completion wins ties
func (r *recordRepository) TopTimes(ctx context.Context, key model.TargetKey, limit int) ([]model.GameRecord, error) {
	var recs []model.GameRecord
	err := r.ranked(r.db.WithContext(ctx), key).
		Preload("User").
		Order("best_time ASC, completed_at ASC, id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("top times %s: %w", key, err)
	}
	return recs, nil
}

// CountFaster completed records with a strictly smaller best time
func (r *recordRepository) CountFaster(ctx context.Context, key model.TargetKey, best float64) (int64, error) {
	var n int64
	if err := r.ranked(r.db.WithContext(ctx), key).Where("best_time < ?", best).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count faster %s: %w", key, err)
	}
	return n, nil
}
