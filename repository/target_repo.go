package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"space_puzzle/model"
)

type TargetRepository interface {
	GetSectorBySlug(ctx context.Context, slug string) (*model.Sector, error)
	GetObjectByNasaID(ctx context.Context, nasaID string) (*model.CelestialObject, error)
	AssignSeed(ctx context.Context, objectID uint64, seed int64, config datatypes.JSON) (bool, error)
	UnlockedSectorIDs(ctx context.Context, stars int) ([]uint64, error)
	GetApodByDate(ctx context.Context, date string) (*model.Apod, error)
	EnsureApod(ctx context.Context, a *model.Apod) (*model.Apod, error)
}

type targetRepository struct {
	db *gorm.DB
}

func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

// GetSectorBySlug sector with its objects in display order
func (r *targetRepository) GetSectorBySlug(ctx context.Context, slug string) (*model.Sector, error) {
	var s model.Sector
	err := r.db.WithContext(ctx).
		Preload("CelestialObjects", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		Where("slug = ?", slug).
		First(&s).Error
	if err != nil {
		return nil, fmt.Errorf("get sector %q: %w", slug, err)
	}
	return &s, nil
}

// GetObjectByNasaID object with its sector preloaded for the access gate
func (r *targetRepository) GetObjectByNasaID(ctx context.Context, nasaID string) (*model.CelestialObject, error) {
	var o model.CelestialObject
	err := r.db.WithContext(ctx).Preload("Sector").Where("nasa_id = ?", nasaID).First(&o).Error
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", nasaID, err)
	}
	return &o, nil
}

// AssignSeed sets the puzzle seed only if none is stored yet. False means another request won.
func (r *targetRepository) AssignSeed(ctx context.Context, objectID uint64, seed int64, config datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.CelestialObject{}).
		Where("id = ? AND puzzle_seed IS NULL", objectID).
		Updates(map[string]interface{}{
			"puzzle_seed":   seed,
			"puzzle_config": config,
		})
	if res.Error != nil {
		return false, fmt.Errorf("assign seed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UnlockedSectorIDs sectors whose threshold is met, in display order
func (r *targetRepository) UnlockedSectorIDs(ctx context.Context, stars int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.Sector{}).
		Where("required_stars <= ?", stars).
		Order("display_order ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("unlocked sectors: %w", err)
	}
	return ids, nil
}

// GetApodByDate stored daily puzzle
func (r *targetRepository) GetApodByDate(ctx context.Context, date string) (*model.Apod, error) {
	var a model.Apod
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&a).Error; err != nil {
		return nil, fmt.Errorf("get apod %s: %w", date, err)
	}
	return &a, nil
}

// EnsureApod insert the daily puzzle once; an existing row is returned untouched
func (r *targetRepository) EnsureApod(ctx context.Context, a *model.Apod) (*model.Apod, error) {
	row := *a
	if err := r.db.WithContext(ctx).Clauses(doNothingOn("date")).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("ensure apod: %w", err)
	}
	return r.GetApodByDate(ctx, a.Date)
}
