package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	config "github.com/NordCoder/Stockpulse/internal/config/api"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/obs"
	"github.com/NordCoder/Stockpulse/internal/services/api/auth"
	"github.com/NordCoder/Stockpulse/internal/services/api/httpx"
	"github.com/NordCoder/Stockpulse/internal/services/api/users"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, store user.Store, svc *services) *http.Server {
	r := mux.NewRouter()
	r.Use(obs.Instrument)

	r.Handle("/metrics", obs.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		hctx, cancel := context.WithTimeout(req.Context(), 500*time.Millisecond)
		defer cancel()
		if err := store.Ping(hctx); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	auth.NewServer(svc.auth, auth.Opts{Logger: logger}).Routes(r)
	users.NewServer(svc.users, svc.auth, svc.guard, users.Opts{Logger: logger}).Routes(r)

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.HTTPHandler(r, "stockpulse-api"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
