package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// CompletionStatus progress of a user on a puzzle target.
// StatusNeverAttempted is never stored: it is the absence of a record.
type CompletionStatus string

const (
	StatusNeverAttempted CompletionStatus = ""
	StatusInProgress     CompletionStatus = "in_progress"
	StatusCompleted      CompletionStatus = "completed"
)

// TargetKind tag of the puzzle target variant
type TargetKind string

const (
	KindCatalog TargetKind = "catalog"
	KindDaily   TargetKind = "daily"
)

const (
	DefaultPuzzleType = "jigsaw"

	ApodGridSize    = 7
	ApodRewardParts = 1
	ApodDifficulty  = "special"
	ApodDateLayout  = "2006-01-02"
)

// TargetKey uniqueness projection of a target, combined with the user id
type TargetKey struct {
	TargetID   string
	PuzzleType string
}

// Reward currency granted on first clear
type Reward struct {
	Stars   int `json:"stars"`
	Credits int `json:"credits"`
	Parts   int `json:"parts"`
}

// IsZero reports whether nothing is granted
func (r Reward) IsZero() bool {
	return r.Stars == 0 && r.Credits == 0 && r.Parts == 0
}

// Add sums two rewards
func (r Reward) Add(o Reward) Reward {
	return Reward{Stars: r.Stars + o.Stars, Credits: r.Credits + o.Credits, Parts: r.Parts + o.Parts}
}

// PuzzleTarget something a user can clear: a catalogued object or the daily image
type PuzzleTarget interface {
	Kind() TargetKind
	Key() TargetKey
	// RequiredStars access gate threshold, zero for ungated targets
	RequiredStars() int
	Reward() Reward
	// Attach copies the target identity onto a fresh record
	Attach(r *GameRecord)
	Describe() string
}

// CatalogTarget celestial object inside a gated sector. Rewards stars.
type CatalogTarget struct {
	Object *CelestialObject
	Gate   int
}

// NewCatalogTarget builds a target from an object with its sector preloaded
func NewCatalogTarget(obj *CelestialObject) CatalogTarget {
	gate := 0
	if obj.Sector != nil {
		gate = obj.Sector.RequiredStars
	}
	return CatalogTarget{Object: obj, Gate: gate}
}

func (t CatalogTarget) Kind() TargetKind { return KindCatalog }

func (t CatalogTarget) Key() TargetKey {
	pt := t.Object.PuzzleType
	if pt == "" {
		pt = DefaultPuzzleType
	}
	return TargetKey{TargetID: "object:" + strconv.FormatUint(t.Object.ID, 10), PuzzleType: pt}
}

func (t CatalogTarget) RequiredStars() int { return t.Gate }

func (t CatalogTarget) Reward() Reward { return Reward{Stars: t.Object.RewardStars} }

func (t CatalogTarget) Attach(r *GameRecord) {
	id := t.Object.ID
	r.TargetKind = KindCatalog
	r.CelestialObjectID = &id
}

func (t CatalogTarget) Describe() string { return "nasa_id=" + t.Object.NasaID }

// DailyTarget the APOD entry of one calendar date. Rewards currency, never gated.
type DailyTarget struct {
	Apod *Apod
}

func (t DailyTarget) Kind() TargetKind { return KindDaily }

func (t DailyTarget) Key() TargetKey {
	pt := t.Apod.PuzzleType
	if pt == "" {
		pt = DefaultPuzzleType
	}
	return TargetKey{TargetID: "apod:" + t.Apod.Date, PuzzleType: pt}
}

func (t DailyTarget) RequiredStars() int { return 0 }

func (t DailyTarget) Reward() Reward { return Reward{Parts: ApodRewardParts} }

func (t DailyTarget) Attach(r *GameRecord) {
	date := t.Apod.Date
	r.TargetKind = KindDaily
	r.ApodDate = &date
}

func (t DailyTarget) Describe() string { return "apod_date=" + t.Apod.Date }

// Unlocked live access gate check
func Unlocked(u *User, t PuzzleTarget) bool {
	return u.Stars >= t.RequiredStars()
}

// PuzzleConfig what the client needs to render an identical tiling
type PuzzleConfig struct {
	GridSize int   `json:"gridSize"`
	Seed     int64 `json:"seed"`
}

// HashDateToSeed deterministic seed for a date string
func HashDateToSeed(date string) int64 {
	var h int64
	for i := 0; i < len(date); i++ {
		h = (h*31 + int64(date[i])) % 1_000_000_000
	}
	return h
}

// PlayTime reported clear time in seconds; zero value means absent or invalid
type PlayTime struct {
	Seconds float64
	Valid   bool
}

// ParsePlayTime accepts any JSON number > 0; everything else is ignored
func ParsePlayTime(raw json.RawMessage) PlayTime {
	if len(raw) == 0 {
		return PlayTime{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return PlayTime{}
	}
	f, ok := v.(float64)
	if !ok {
		return PlayTime{}
	}
	return NewPlayTime(f)
}

// NewPlayTime valid only for a finite number of seconds > 0
func NewPlayTime(seconds float64) PlayTime {
	pt := PlayTime{Seconds: seconds, Valid: true}
	if !pt.Usable() {
		return PlayTime{}
	}
	return pt
}

// Usable reports whether the time may feed bestTime or a speed badge
func (pt PlayTime) Usable() bool {
	return pt.Valid && pt.Seconds > 0 && !math.IsInf(pt.Seconds, 0) && !math.IsNaN(pt.Seconds)
}

// NonNegativeNumber raw JSON number >= 0, used when merging play time into a save state
func NonNegativeNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, false
	}
	return f, true
}

// NextBestTime best time after a completion: only a valid report can lower it
func NextBestTime(existing *float64, pt PlayTime) *float64 {
	if !pt.Usable() {
		if existing == nil {
			return nil
		}
		v := *existing
		return &v
	}
	best := pt.Seconds
	if existing != nil && *existing < best {
		best = *existing
	}
	return &best
}

func (k TargetKey) String() string {
	return fmt.Sprintf("%s/%s", k.TargetID, k.PuzzleType)
}
