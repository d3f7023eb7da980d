package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

type Handler struct {
	service *application.Service
	storage ports.SubmissionStorage
}

func NewHandler(service *application.Service, storage ports.SubmissionStorage) *Handler {
	return &Handler{service: service, storage: storage}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/escrows", handler.createEscrow)
			r.Get("/escrows/{escrow_id}", handler.getEscrow)
			r.Post("/escrows/{escrow_id}/deposit", handler.deposit)
			r.Get("/escrows/{escrow_id}/fees", handler.quoteFees)
			r.Post("/escrows/{escrow_id}/verify", handler.verify)
			r.Get("/escrows/{escrow_id}/verifications", handler.listVerifications)
			r.Post("/escrows/{escrow_id}/refund", handler.refund)
			r.Get("/escrows/{escrow_id}/settlement", handler.getSettlement)
			r.Post("/escrows/{escrow_id}/settlement/retry", handler.retrySettlement)
		})
	})
	return r
}
