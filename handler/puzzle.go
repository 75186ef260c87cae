package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"space_puzzle/model"
	"space_puzzle/service"
)

type completeRequest struct {
	PlayTime json.RawMessage `json:"playTime"`
}

type saveStateRequest struct {
	SaveState json.RawMessage `json:"saveState"`
	PlayTime  json.RawMessage `json:"playTime"`
}

type recordView struct {
	ID          uint64     `json:"id"`
	BestTime    *float64   `json:"bestTime"`
	CompletedAt *time.Time `json:"completedAt"`
}

type completionResponse struct {
	IsFirstClear     bool                 `json:"isFirstClear"`
	RewardStars      int                  `json:"rewardStars"`
	RewardCredits    int                  `json:"rewardCredits"`
	RewardParts      int                  `json:"rewardParts"`
	MilestoneCredits int                  `json:"milestoneCredits"`
	MilestoneParts   int                  `json:"milestoneParts"`
	TotalStars       int                  `json:"totalStars"`
	TotalCredits     int                  `json:"totalCredits"`
	TotalParts       int                  `json:"totalParts"`
	TotalClears      int                  `json:"totalClears"`
	NewBadges        []model.AwardedBadge `json:"newBadges"`
	Record           recordView           `json:"record"`
}

func newCompletionResponse(res *service.CompletionResult) completionResponse {
	out := completionResponse{
		IsFirstClear:     res.IsFirstClear,
		RewardStars:      res.Reward.Stars,
		RewardCredits:    res.Reward.Credits,
		RewardParts:      res.Reward.Parts,
		MilestoneCredits: res.MilestoneReward.Credits,
		MilestoneParts:   res.MilestoneReward.Parts,
		NewBadges:        res.NewBadges,
	}
	if out.NewBadges == nil {
		out.NewBadges = []model.AwardedBadge{}
	}
	if u := res.User; u != nil {
		out.TotalStars = u.Stars
		out.TotalCredits = u.Credits
		out.TotalParts = u.Parts
		out.TotalClears = u.TotalClears
	}
	if rec := res.Record; rec != nil {
		out.Record = recordView{ID: rec.ID, BestTime: rec.BestTime, CompletedAt: rec.CompletedAt}
	}
	return out
}

func (h *Handler) listSector(w http.ResponseWriter, r *http.Request) {
	view, err := h.puzzles.ListSector(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

func (h *Handler) getPuzzle(w http.ResponseWriter, r *http.Request) {
	view, err := h.puzzles.GetPuzzle(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId"))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

func (h *Handler) saveState(w http.ResponseWriter, r *http.Request) {
	var req saveStateRequest
	if err := decode(r, &req); err != nil {
		Error(w, r, h.logger, err)
		return
	}
	rec, err := h.puzzles.SaveState(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId"), req.SaveState, req.PlayTime)
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"lastAttemptAt": rec.LastAttemptAt,
		"isCompleted":   rec.IsCompleted(),
	})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	view, err := h.puzzles.GetState(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId"))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

func (h *Handler) abandonState(w http.ResponseWriter, r *http.Request) {
	if err := h.puzzles.AbandonState(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId")); err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) completePuzzle(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(r, &req); err != nil {
		Error(w, r, h.logger, err)
		return
	}
	res, err := h.puzzles.Complete(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId"), model.ParsePlayTime(req.PlayTime))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, newCompletionResponse(res))
}

func (h *Handler) puzzleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.puzzles.Leaderboard(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "nasaId"))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, board)
}
