package model

import (
	"encoding/json"
	"time"
)

// RuleType tag stored on a BadgeRule row
type RuleType string

const (
	RuleTotalClear RuleType = "TOTAL_CLEAR"
	RuleFastClear  RuleType = "FAST_CLEAR"
	RuleFirstClear RuleType = "FIRST_CLEAR"
)

// RunOutcome state a badge predicate is evaluated against
type RunOutcome struct {
	// User snapshot after this completion's increments
	User       User
	PlayTime   PlayTime
	FirstClear bool
}

// BadgePredicate closed set of badge conditions
type BadgePredicate interface {
	Eligible(o RunOutcome) bool
	isBadgePredicate()
}

// TotalClearCount cumulative clears reach Count
type TotalClearCount struct{ Count float64 }

// FastClear this run took at most MaxSeconds
type FastClear struct{ MaxSeconds float64 }

// FirstClear this run was the first clear of its target
type FirstClear struct{}

func (p TotalClearCount) Eligible(o RunOutcome) bool {
	return p.Count > 0 && float64(o.User.TotalClears) >= p.Count
}

func (p FastClear) Eligible(o RunOutcome) bool {
	return p.MaxSeconds > 0 && o.PlayTime.Usable() && o.PlayTime.Seconds <= p.MaxSeconds
}

func (p FirstClear) Eligible(o RunOutcome) bool {
	return o.FirstClear
}

func (TotalClearCount) isBadgePredicate() {}
func (FastClear) isBadgePredicate()       {}
func (FirstClear) isBadgePredicate()      {}

type ruleConfig struct {
	Count      *float64 `json:"count"`
	Seconds    *float64 `json:"seconds"`
	MaxSeconds *float64 `json:"maxSeconds"`
}

// Predicate decodes the stored rule. Unknown types and broken configs yield nil, which never matches.
func (r *BadgeRule) Predicate() BadgePredicate {
	var cfg ruleConfig
	if len(r.RuleConfig) > 0 {
		if err := json.Unmarshal(r.RuleConfig, &cfg); err != nil {
			return nil
		}
	}
	switch r.RuleType {
	case RuleTotalClear:
		if cfg.Count == nil {
			return nil
		}
		return TotalClearCount{Count: *cfg.Count}
	case RuleFastClear:
		switch {
		case cfg.Seconds != nil:
			return FastClear{MaxSeconds: *cfg.Seconds}
		case cfg.MaxSeconds != nil:
			return FastClear{MaxSeconds: *cfg.MaxSeconds}
		}
		return nil
	case RuleFirstClear:
		return FirstClear{}
	}
	return nil
}

// AwardedBadge badge as reported to the client
type AwardedBadge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl"`
	BadgeType   string    `json:"badgeType"`
	AcquiredAt  time.Time `json:"acquiredAt"`
}

// NewAwardedBadge flattens an ownership row with its badge preloaded
func NewAwardedBadge(ub *UserBadge) AwardedBadge {
	out := AwardedBadge{ID: ub.BadgeID, AcquiredAt: ub.AcquiredAt}
	if ub.Badge != nil {
		out.Name = ub.Badge.Name
		out.Description = ub.Badge.Description
		out.IconURL = ub.Badge.IconURL
		out.BadgeType = ub.Badge.BadgeType
	}
	return out
}
