package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"concert-manager/config"
	"concert-manager/controllers"
	"concert-manager/metrics"
	"concert-manager/middleware"
	"concert-manager/models"
	"concert-manager/utils"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

func newRouter(db *sqlx.DB, cfg *config.Config, validator controllers.SchemaValidator, m *metrics.Metrics) *mux.Router {
	eventBandController := controllers.EventBandController{Validator: validator}
	requireToken := middleware.RequireToken(cfg.Auth.Secret)

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.AccessLog)
	if m != nil {
		router.Use(m.Instrument)
	}
	// must stay innermost so AccessLog and Instrument see the 500 it writes
	router.Use(middleware.Recover)

	router.HandleFunc("/healthz", health(db)).Methods("GET")
	if m != nil && cfg.Metrics.Enabled {
		router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	router.HandleFunc("/event-bands", eventBandController.GetEventBands(db)).Methods("GET")
	router.Handle("/event-bands", requireToken(eventBandController.CreateEventBand(db))).Methods("POST")
	router.HandleFunc("/event-bands/event/{id}/count", eventBandController.CountEventBandsByEvent(db)).Methods("GET")
	router.HandleFunc("/event-bands/event/{id}", eventBandController.GetEventBandDetailsByEvent(db)).Methods("GET")
	router.HandleFunc("/event-bands/{id}", eventBandController.GetEventBand(db)).Methods("GET")
	router.Handle("/event-bands/{id}", requireToken(eventBandController.UpdateEventBand(db))).Methods("PUT")

	return router
}

func health(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			utils.RespondWithError(w, http.StatusServiceUnavailable, models.Error{Message: "database unavailable"})
			return
		}
		utils.ResponseJSON(w, map[string]string{"status": "ok"})
	}
}
