package service

import (
	"context"
	"time"

	"space_puzzle/model"
	"space_puzzle/repository"
)

// Completion what the recorder observed and wrote
type Completion struct {
	Record     *model.GameRecord
	Previous   model.CompletionStatus
	FirstClear bool
}

// CompletionRecorder writes the completion record. It never grants rewards;
// the caller hands FirstClear to the reward engine inside the same transaction.
type CompletionRecorder struct{}

// Record must run inside a transaction
func (CompletionRecorder) Record(ctx context.Context, tx *repository.Store, userID string, target model.PuzzleTarget, pt model.PlayTime, now time.Time) (*Completion, error) {
	rec, err := tx.Records.Acquire(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	previous := rec.Status

	best := model.NextBestTime(rec.BestTime, pt)
	first, err := tx.Records.MarkCompleted(ctx, rec.ID, best, now)
	if err != nil {
		return nil, err
	}

	completedAt := now
	rec.Status = model.StatusCompleted
	rec.CompletedAt = &completedAt
	rec.BestTime = best
	return &Completion{Record: rec, Previous: previous, FirstClear: first}, nil
}
