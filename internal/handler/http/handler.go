package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/cart"
)

const readyTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db    Pinger
	carts cart.Repository
}

func NewHandler(db Pinger, carts cart.Repository) *Handler {
	return &Handler{db: db, carts: carts}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.handleHealth)
	router.Get("/ready", h.handleReady)

	router.Route("/carts", func(r chi.Router) {
		r.Get("/{id}", h.handleGetCart)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the database answers a ping.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Readiness check failed")
		respondWithError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid cart ID")
		return
	}

	c, err := h.carts.GetCartByID(r.Context(), id)
	if err != nil {
		status := mapErrorToStatusCode(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Int("cart_id", id).Msg("Failed to get cart")
			respondWithError(w, status, "Internal server error")
			return
		}
		respondWithError(w, status, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}
