package model

import (
	"time"

	"gorm.io/datatypes"
)

// User player account, keyed by the identity provider's subject
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Email       string    `gorm:"size:255" json:"email"`
	Nickname    *string   `gorm:"size:64" json:"nickname"`
	GoogleID    *string   `gorm:"size:64" json:"googleId,omitempty"`
	Stars       int       `gorm:"not null;default:0" json:"stars"`
	Credits     int       `gorm:"not null;default:0" json:"credits"`
	Parts       int       `gorm:"not null;default:0" json:"parts"`
	TotalClears int       `gorm:"column:total_clears;not null;default:0" json:"total_clears"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DisplayName nickname or empty string
func (u *User) DisplayName() string {
	if u == nil || u.Nickname == nil {
		return ""
	}
	return *u.Nickname
}

// Sector region of space gated by a star threshold
type Sector struct {
	ID               uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug             string            `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Name             string            `gorm:"size:128;not null" json:"name"`
	Description      string            `gorm:"type:text" json:"description"`
	DisplayOrder     int               `gorm:"not null;default:0" json:"displayOrder"`
	RequiredStars    int               `gorm:"not null;default:0;index" json:"requiredStars"`
	CelestialObjects []CelestialObject `gorm:"foreignKey:SectorID" json:"-"`
}

// CelestialObject catalogued puzzle target inside a sector
type CelestialObject struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	NasaID       string         `gorm:"uniqueIndex;size:64;not null" json:"nasaId"`
	SectorID     uint64         `gorm:"index;not null" json:"sectorId"`
	Sector       *Sector        `gorm:"foreignKey:SectorID" json:"-"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	NameEn       string         `gorm:"size:255" json:"nameEn"`
	Description  string         `gorm:"type:text" json:"description"`
	ImageURL     string         `gorm:"size:512" json:"imageUrl"`
	Category     string         `gorm:"size:64" json:"category"`
	Difficulty   string         `gorm:"size:32" json:"difficulty"`
	GridSize     int            `gorm:"not null;default:3" json:"gridSize"`
	RewardStars  int            `gorm:"not null;default:1" json:"rewardStars"`
	PuzzleType   string         `gorm:"size:32;not null;default:jigsaw" json:"puzzleType"`
	DisplayOrder int            `gorm:"not null;default:0" json:"displayOrder"`
	PuzzleSeed   *int64         `json:"puzzleSeed,omitempty"`
	PuzzleConfig datatypes.JSON `json:"puzzleConfig,omitempty"`
}

// Apod daily featured image, one row per calendar date
type Apod struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Date         string         `gorm:"uniqueIndex;size:10;not null" json:"date"`
	Title        string         `gorm:"size:255" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	ImageURL     string         `gorm:"size:512" json:"imageUrl"`
	PuzzleType   string         `gorm:"size:32;not null;default:jigsaw" json:"puzzleType"`
	Difficulty   string         `gorm:"size:32" json:"difficulty"`
	PuzzleSeed   int64          `gorm:"not null" json:"puzzleSeed"`
	PuzzleConfig datatypes.JSON `json:"puzzleConfig"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// GameRecord completion record, exactly one per (user, target, puzzle type)
type GameRecord struct {
	ID                uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            string           `gorm:"size:36;not null;uniqueIndex:uk_record_target,priority:1" json:"userId"`
	TargetID          string           `gorm:"size:96;not null;uniqueIndex:uk_record_target,priority:2;index:idx_record_board,priority:1" json:"targetId"`
	PuzzleType        string           `gorm:"size:32;not null;uniqueIndex:uk_record_target,priority:3" json:"puzzleType"`
	TargetKind        TargetKind       `gorm:"size:16;not null" json:"targetKind"`
	CelestialObjectID *uint64          `gorm:"index" json:"celestialObjectId,omitempty"`
	ApodDate          *string          `gorm:"size:10;index" json:"apodDate,omitempty"`
	Status            CompletionStatus `gorm:"size:16;not null;default:in_progress;index:idx_record_board,priority:2" json:"status"`
	CompletedAt       *time.Time       `gorm:"index" json:"completedAt"`
	BestTime          *float64         `gorm:"index:idx_record_board,priority:3" json:"bestTime"`
	SaveState         datatypes.JSON   `json:"saveState,omitempty"`
	LastAttemptAt     *time.Time       `json:"lastAttemptAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`

	User            *User            `gorm:"foreignKey:UserID" json:"-"`
	CelestialObject *CelestialObject `gorm:"foreignKey:CelestialObjectID" json:"-"`
}

// IsCompleted reports whether the record has been cleared at least once
func (r *GameRecord) IsCompleted() bool {
	return r != nil && r.Status == StatusCompleted
}

// StarMilestone one-time reward for reaching a cumulative star threshold
type StarMilestone struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RequiredStars  int     `gorm:"uniqueIndex;not null" json:"requiredStars"`
	RewardCredits  int     `gorm:"not null;default:0" json:"rewardCredits"`
	RewardParts    int     `gorm:"not null;default:0" json:"rewardParts"`
	UnlockSectorID *uint64 `json:"unlockSectorId,omitempty"`
	UnlockSector   *Sector `gorm:"foreignKey:UnlockSectorID" json:"-"`
}

// UserMilestone the fact that a user has been awarded a milestone
type UserMilestone struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:36;not null;uniqueIndex:uk_user_milestone,priority:1" json:"userId"`
	MilestoneID uint64    `gorm:"not null;uniqueIndex:uk_user_milestone,priority:2" json:"milestoneId"`
	AchievedAt  time.Time `gorm:"not null" json:"achievedAt"`
}

// Badge collectible award
type Badge struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Name        string `gorm:"size:128;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"size:512" json:"iconUrl"`
	BadgeType   string `gorm:"size:32" json:"badgeType"`
}

// BadgeRule predicate that grants a badge; ID order is evaluation order
type BadgeRule struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	BadgeID    string         `gorm:"size:64;not null;uniqueIndex:uk_badge_rule,priority:1" json:"badgeId"`
	RuleType   RuleType       `gorm:"size:32;not null;uniqueIndex:uk_badge_rule,priority:2" json:"ruleType"`
	RuleConfig datatypes.JSON `json:"ruleConfig"`
	Badge      *Badge         `gorm:"foreignKey:BadgeID" json:"-"`
}

// UserBadge badge ownership, at most once per (user, badge)
type UserBadge struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:uk_user_badge,priority:1" json:"userId"`
	BadgeID    string    `gorm:"size:64;not null;uniqueIndex:uk_user_badge,priority:2" json:"badgeId"`
	AcquiredAt time.Time `gorm:"not null" json:"acquiredAt"`
	Badge      *Badge    `gorm:"foreignKey:BadgeID" json:"-"`
}

// Item cosmetic shop item
type Item struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:128;not null" json:"name"`
	Type string `gorm:"size:32;not null" json:"type"`
	Cost int    `gorm:"not null;default:0" json:"cost"`
}

// UserItem item ownership, at most once per (user, item)
type UserItem struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:36;not null;uniqueIndex:uk_user_item,priority:1" json:"userId"`
	ItemID      string    `gorm:"size:64;not null;uniqueIndex:uk_user_item,priority:2" json:"itemId"`
	IsEquipped  bool      `gorm:"not null;default:false" json:"isEquipped"`
	PurchasedAt time.Time `gorm:"not null" json:"purchasedAt"`
	Item        *Item     `gorm:"foreignKey:ItemID" json:"-"`
}

// LogReason why a balance changed
type LogReason string

const (
	ReasonFirstClear LogReason = "first_clear"
	ReasonMilestone  LogReason = "milestone"
	ReasonPurchase   LogReason = "purchase"
)

// CurrencyLog balance change record, written in the transaction that made the change
type CurrencyLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:36;not null;index:idx_currency_log_user" json:"userId"`
	Reason      LogReason `gorm:"size:16;not null" json:"reason"`
	Ref         string    `gorm:"size:96" json:"ref"`
	Stars       int       `gorm:"not null;default:0" json:"stars"`
	Credits     int       `gorm:"not null;default:0" json:"credits"`
	Parts       int       `gorm:"not null;default:0" json:"parts"`
	BeforeStars int       `gorm:"not null" json:"beforeStars"`
	AfterStars  int       `gorm:"not null" json:"afterStars"`
	CreatedAt   time.Time `gorm:"index:idx_currency_log_user" json:"createdAt"`
}

// All models in migration order
func All() []any {
	return []any{
		&User{},
		&Sector{},
		&CelestialObject{},
		&Apod{},
		&GameRecord{},
		&StarMilestone{},
		&UserMilestone{},
		&Badge{},
		&BadgeRule{},
		&UserBadge{},
		&Item{},
		&UserItem{},
		&CurrencyLog{},
	}
}
