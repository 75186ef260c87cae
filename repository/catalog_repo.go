package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"space_puzzle/catalog"
	"space_puzzle/model"
)

type CatalogRepository interface {
	Milestones(ctx context.Context) ([]model.StarMilestone, error)
	CountMilestones(ctx context.Context) (int64, error)
	MilestonesCrossed(ctx context.Context, before, after int) ([]model.StarMilestone, error)
	AwardMilestone(ctx context.Context, userID string, milestoneID uint64, at time.Time) (bool, error)
	AchievedMilestoneIDs(ctx context.Context, userID string) (map[uint64]bool, error)
	BadgeRules(ctx context.Context) ([]model.BadgeRule, error)
	OwnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error)
	AwardBadge(ctx context.Context, userID, badgeID string, at time.Time) (*model.UserBadge, bool, error)
	UserBadges(ctx context.Context, userID string) ([]model.UserBadge, error)
	Reconcile(ctx context.Context, c *catalog.Catalog) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// Milestones full ladder ordered by threshold
func (r *catalogRepository) Milestones(ctx context.Context) ([]model.StarMilestone, error) {
	var ms []model.StarMilestone
	err := r.db.WithContext(ctx).Preload("UnlockSector").Order("required_stars ASC").Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("milestones: %w", err)
	}
	return ms, nil
}

func (r *catalogRepository) CountMilestones(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.StarMilestone{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count milestones: %w", err)
	}
	return n, nil
}

// MilestonesCrossed thresholds in the half-open range (before, after]
func (r *catalogRepository) MilestonesCrossed(ctx context.Context, before, after int) ([]model.StarMilestone, error) {
	var ms []model.StarMilestone
	if after <= before {
		return ms, nil
	}
	err := r.db.WithContext(ctx).
		Where("required_stars > ? AND required_stars <= ?", before, after).
		Order("required_stars ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("milestones crossed: %w", err)
	}
	return ms, nil
}

// AwardMilestone record the achievement; false if the user already had it
func (r *catalogRepository) AwardMilestone(ctx context.Context, userID string, milestoneID uint64, at time.Time) (bool, error) {
	row := model.UserMilestone{UserID: userID, MilestoneID: milestoneID, AchievedAt: at}
	res := r.db.WithContext(ctx).Clauses(doNothingOn("user_id", "milestone_id")).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("award milestone: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *catalogRepository) AchievedMilestoneIDs(ctx context.Context, userID string) (map[uint64]bool, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.UserMilestone{}).Where("user_id = ?", userID).Pluck("milestone_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("achieved milestones: %w", err)
	}
	out := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// BadgeRules every rule in insertion order with its badge
func (r *catalogRepository) BadgeRules(ctx context.Context) ([]model.BadgeRule, error) {
	var rules []model.BadgeRule
	if err := r.db.WithContext(ctx).Preload("Badge").Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("badge rules: %w", err)
	}
	return rules, nil
}

func (r *catalogRepository) OwnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.UserBadge{}).Where("user_id = ?", userID).Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("owned badges: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// AwardBadge grant ownership at most once. The returned row has its badge loaded.
func (r *catalogRepository) AwardBadge(ctx context.Context, userID, badgeID string, at time.Time) (*model.UserBadge, bool, error) {
	row := model.UserBadge{UserID: userID, BadgeID: badgeID, AcquiredAt: at}
	res := r.db.WithContext(ctx).Clauses(doNothingOn("user_id", "badge_id")).Create(&row)
	if res.Error != nil {
		return nil, false, fmt.Errorf("award badge: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, false, nil
	}
	var ub model.UserBadge
	err := r.db.WithContext(ctx).Preload("Badge").
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		First(&ub).Error
	if err != nil {
		return nil, false, fmt.Errorf("award badge: reload: %w", err)
	}
	return &ub, true, nil
}

// UserBadges owned badges, newest first
func (r *catalogRepository) UserBadges(ctx context.Context, userID string) ([]model.UserBadge, error) {
	var ubs []model.UserBadge
	err := r.db.WithContext(ctx).Preload("Badge").
		Where("user_id = ?", userID).
		Order("acquired_at DESC, id DESC").
		Find(&ubs).Error
	if err != nil {
		return nil, fmt.Errorf("user badges: %w", err)
	}
	return ubs, nil
}

// Reconcile upserts the whole catalog in one transaction. Rows are keyed by
// their natural keys so running it again only refreshes values. Puzzle seeds
// are never written here.
func (r *catalogRepository) Reconcile(ctx context.Context, c *catalog.Catalog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sectorIDs := make(map[string]uint64, len(c.Sectors))
		for _, s := range c.Sectors {
			row := model.Sector{
				Slug:          s.Slug,
				Name:          s.Name,
				Description:   s.Description,
				DisplayOrder:  s.DisplayOrder,
				RequiredStars: s.RequiredStars,
			}
			err := tx.Clauses(updateOn([]string{"slug"}, "name", "description", "display_order", "required_stars")).
				Create(&row).Error
			if err != nil {
				return fmt.Errorf("reconcile sector %q: %w", s.Slug, err)
			}
			var stored model.Sector
			if err := tx.Where("slug = ?", s.Slug).First(&stored).Error; err != nil {
				return fmt.Errorf("reconcile sector %q: reload: %w", s.Slug, err)
			}
			sectorIDs[s.Slug] = stored.ID
		}

		for _, o := range c.Objects {
			pt := o.PuzzleType
			if pt == "" {
				pt = model.DefaultPuzzleType
			}
			grid := o.GridSize
			if grid <= 0 {
				grid = 3
			}
			row := model.CelestialObject{
				NasaID:       o.NasaID,
				SectorID:     sectorIDs[o.Sector],
				Title:        o.Title,
				NameEn:       o.NameEn,
				Description:  o.Description,
				ImageURL:     o.ImageURL,
				Category:     o.Category,
				Difficulty:   o.Difficulty,
				GridSize:     grid,
				RewardStars:  o.RewardStars,
				PuzzleType:   pt,
				DisplayOrder: o.DisplayOrder,
			}
			err := tx.Clauses(updateOn([]string{"nasa_id"},
				"sector_id", "title", "name_en", "description", "image_url", "category",
				"difficulty", "reward_stars", "display_order")).
				Create(&row).Error
			if err != nil {
				return fmt.Errorf("reconcile object %q: %w", o.NasaID, err)
			}
		}

		for _, m := range c.Milestones {
			row := model.StarMilestone{
				RequiredStars: m.RequiredStars,
				RewardCredits: m.RewardCredits,
				RewardParts:   m.RewardParts,
			}
			if m.UnlockSector != "" {
				id := sectorIDs[m.UnlockSector]
				row.UnlockSectorID = &id
			}
			err := tx.Clauses(updateOn([]string{"required_stars"}, "reward_credits", "reward_parts", "unlock_sector_id")).
				Create(&row).Error
			if err != nil {
				return fmt.Errorf("reconcile milestone %d: %w", m.RequiredStars, err)
			}
		}

		for _, b := range c.Badges {
			row := model.Badge{
				ID:          b.ID,
				Name:        b.Name,
				Description: b.Description,
				IconURL:     b.IconURL,
				BadgeType:   b.BadgeType,
			}
			err := tx.Clauses(updateOn([]string{"id"}, "name", "description", "icon_url", "badge_type")).
				Create(&row).Error
			if err != nil {
				return fmt.Errorf("reconcile badge %q: %w", b.ID, err)
			}
			for _, rule := range b.Rules {
				rr := model.BadgeRule{
					BadgeID:    b.ID,
					RuleType:   rule.Type,
					RuleConfig: datatypes.JSON(rule.ConfigJSON()),
				}
				err := tx.Clauses(updateOn([]string{"badge_id", "rule_type"}, "rule_config")).
					Create(&rr).Error
				if err != nil {
					return fmt.Errorf("reconcile badge %q rule %s: %w", b.ID, rule.Type, err)
				}
			}
		}

		for _, it := range c.Items {
			row := model.Item{ID: it.ID, Name: it.Name, Type: it.Type, Cost: it.Cost}
			err := tx.Clauses(updateOn([]string{"id"}, "name", "type", "cost")).Create(&row).Error
			if err != nil {
				return fmt.Errorf("reconcile item %q: %w", it.ID, err)
			}
		}
		return nil
	})
}
