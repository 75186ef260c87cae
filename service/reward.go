package service

import (
	"context"
	"strconv"
	"time"

	"space_puzzle/model"
	"space_puzzle/repository"
)

// Grant everything a first clear produced
type Grant struct {
	Reward          model.Reward
	MilestoneReward model.Reward
	Milestones      []model.StarMilestone
	NewBadges       []model.AwardedBadge
	User            *model.User
}

// RewardEngine applies first-clear rewards, milestones and badges
type RewardEngine struct{}

// Grant must run in the transaction that flipped the record to completed,
// and only when that flip was the first clear. before is the user row locked
// at the start of the transaction.
func (RewardEngine) Grant(ctx context.Context, tx *repository.Store, before *model.User, target model.PuzzleTarget, pt model.PlayTime, now time.Time) (*Grant, error) {
	g := &Grant{Reward: target.Reward()}

	if err := tx.Users.ApplyClear(ctx, before.ID, g.Reward); err != nil {
		return nil, err
	}

	starsAfter := before.Stars + g.Reward.Stars
	err := tx.Users.LogChange(ctx, &model.CurrencyLog{
		UserID:      before.ID,
		Reason:      model.ReasonFirstClear,
		Ref:         target.Key().String(),
		Stars:       g.Reward.Stars,
		Credits:     g.Reward.Credits,
		Parts:       g.Reward.Parts,
		BeforeStars: before.Stars,
		AfterStars:  starsAfter,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	crossed, err := tx.Catalog.MilestonesCrossed(ctx, before.Stars, starsAfter)
	if err != nil {
		return nil, err
	}
	for _, m := range crossed {
		awarded, err := tx.Catalog.AwardMilestone(ctx, before.ID, m.ID, now)
		if err != nil {
			return nil, err
		}
		if !awarded {
			continue
		}
		err = tx.Users.LogChange(ctx, &model.CurrencyLog{
			UserID:      before.ID,
			Reason:      model.ReasonMilestone,
			Ref:         "stars:" + strconv.Itoa(m.RequiredStars),
			Credits:     m.RewardCredits,
			Parts:       m.RewardParts,
			BeforeStars: starsAfter,
			AfterStars:  starsAfter,
			CreatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
		g.Milestones = append(g.Milestones, m)
		g.MilestoneReward = g.MilestoneReward.Add(model.Reward{Credits: m.RewardCredits, Parts: m.RewardParts})
	}
	if !g.MilestoneReward.IsZero() {
		if err := tx.Users.AddCurrency(ctx, before.ID, g.MilestoneReward.Credits, g.MilestoneReward.Parts); err != nil {
			return nil, err
		}
	}

	after, err := tx.Users.GetUser(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	g.User = after

	g.NewBadges, err = evaluateBadges(ctx, tx, model.RunOutcome{User: *after, PlayTime: pt, FirstClear: true}, now)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// evaluateBadges runs every rule of a badge the user does not own yet, in rule order
func evaluateBadges(ctx context.Context, tx *repository.Store, outcome model.RunOutcome, now time.Time) ([]model.AwardedBadge, error) {
	rules, err := tx.Catalog.BadgeRules(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := tx.Catalog.OwnedBadgeIDs(ctx, outcome.User.ID)
	if err != nil {
		return nil, err
	}

	awarded := []model.AwardedBadge{}
	for i := range rules {
		rule := &rules[i]
		if owned[rule.BadgeID] {
			continue
		}
		pred := rule.Predicate()
		if pred == nil || !pred.Eligible(outcome) {
			continue
		}
		ub, inserted, err := tx.Catalog.AwardBadge(ctx, outcome.User.ID, rule.BadgeID, now)
		if err != nil {
			return nil, err
		}
		owned[rule.BadgeID] = true
		if inserted {
			awarded = append(awarded, model.NewAwardedBadge(ub))
		}
	}
	return awarded, nil
}
