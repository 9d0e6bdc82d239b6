package controllers

import (
	"net/http"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/responses"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/redis"
)

const envHeader = "X-SPG-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
