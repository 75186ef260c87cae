package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"space_puzzle/model"
)

type apodCompleteRequest struct {
	Date     string          `json:"date"`
	PlayTime json.RawMessage `json:"playTime"`
}

func (h *Handler) apodToday(w http.ResponseWriter, r *http.Request) {
	data, err := h.apod.Today(r.Context())
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, data)
}

func (h *Handler) apodPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := h.apod.Puzzle(r.Context())
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (h *Handler) apodComplete(w http.ResponseWriter, r *http.Request) {
	var req apodCompleteRequest
	if err := decode(r, &req); err != nil {
		Error(w, r, h.logger, err)
		return
	}
	res, err := h.apod.Complete(r.Context(), UserFrom(r.Context()), req.Date, model.ParsePlayTime(req.PlayTime))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, newCompletionResponse(res))
}

func (h *Handler) apodLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.apod.Leaderboard(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "date"))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, board)
}
