package controllers

import (
	"context"
	"net/http"

	"github.com/shopstack/shopstack-backend/api/responses"
	"github.com/shopstack/shopstack-backend/pkg/config"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopStack-Env", cfg.App.Env)
		responses.WriteSuccess(w, http.StatusOK, "", map[string]any{"health": "live"})
	}
}

// HealthReady pings the named dependencies and fails on the first one down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopStack-Env", cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, http.StatusOK, "", map[string]any{"health": "ready"})
	}
}
