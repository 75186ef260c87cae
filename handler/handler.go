// Package handler exposes the services over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"space_puzzle/apperr"
	"space_puzzle/auth"
	"space_puzzle/service"
)

// Services everything the HTTP layer calls into
type Services struct {
	Identity    *service.IdentityService
	Puzzles     *service.PuzzleService
	Apod        *service.ApodService
	Progression *service.ProgressionService
	Shop        *service.ShopService
}

type Handler struct {
	identity    *service.IdentityService
	puzzles     *service.PuzzleService
	apod        *service.ApodService
	progression *service.ProgressionService
	shop        *service.ShopService
	verifier    auth.Verifier
	logger      *slog.Logger
}

func New(svc Services, verifier auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		identity:    svc.Identity,
		puzzles:     svc.Puzzles,
		apod:        svc.Apod,
		progression: svc.Progression,
		shop:        svc.Shop,
		verifier:    verifier,
		logger:      logger,
	}
}

// Router mounts every route behind the common middleware stack
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(allowedOrigins))

	r.Get("/", h.index)
	r.With(h.verifyToken).Post("/auth/login", h.login)
	r.Get("/apod/today", h.apodToday)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Route("/celestial-objects", func(r chi.Router) {
			r.Get("/apod/puzzle", h.apodPuzzle)
			r.Post("/apod/complete", h.apodComplete)
			r.Get("/apod/{date}/leaderboard", h.apodLeaderboard)

			r.Route("/by-nasa/{nasaId}", func(r chi.Router) {
				r.Get("/puzzle", h.getPuzzle)
				r.Get("/puzzle/state", h.getState)
				r.Post("/puzzle/state", h.saveState)
				r.Delete("/puzzle/state", h.abandonState)
				r.Post("/puzzle/complete", h.completePuzzle)
				r.Get("/leaderboard", h.puzzleLeaderboard)
			})
		})
		r.Get("/sectors/{slug}/celestial-objects", h.listSector)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", h.me)
			r.Get("/cleared-celestial-objects", h.clearedObjects)
			r.Get("/resources", h.resources)
			r.Get("/milestones", h.milestones)
		})

		r.Get("/shop/purchased", h.purchased)
		r.Post("/shop/purchase", h.purchase)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Kind: apperr.KindNotFound, Message: "route not found"}})
	})
	return r
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"message": "Space Puzzle API"})
}
