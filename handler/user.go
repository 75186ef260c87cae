package handler

import (
	"net/http"

	"space_puzzle/apperr"
	"space_puzzle/service"
)

type purchaseRequest struct {
	ItemID string `json:"itemId"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		Error(w, r, h.logger, apperr.Unauthorized("authentication token is required"))
		return
	}
	res, err := h.identity.Login(r.Context(), id)
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	days := service.ClampDays(r.URL.Query().Get("days"))
	p, err := h.progression.Profile(r.Context(), UserFrom(r.Context()), days)
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (h *Handler) clearedObjects(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.puzzles.ListCleared(r.Context(), UserFrom(r.Context()))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

func (h *Handler) resources(w http.ResponseWriter, r *http.Request) {
	res, err := h.progression.Resources(r.Context(), UserFrom(r.Context()))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (h *Handler) milestones(w http.ResponseWriter, r *http.Request) {
	board, err := h.progression.Milestones(r.Context(), UserFrom(r.Context()))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, board)
}

func (h *Handler) purchased(w http.ResponseWriter, r *http.Request) {
	ids, err := h.shop.ListPurchased(r.Context(), UserFrom(r.Context()))
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"items": ids})
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		Error(w, r, h.logger, err)
		return
	}
	res, err := h.shop.Purchase(r.Context(), UserFrom(r.Context()), req.ItemID)
	if err != nil {
		Error(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, res)
}
