package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/harlowe-labs/scenthq-backend/api/responses"
	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ScentHQ-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the dependencies a request actually needs. Nil pingers
// are skipped so partial deployments can still come up.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ScentHQ-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := map[string]string{}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				statuses[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				statuses[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(ctx, "readiness check failed", err)
				}
				continue
			}
			statuses[name] = "up"
		}

		status := http.StatusOK
		overall := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":       overall,
			"dependencies": statuses,
		})
	}
}

// ReadinessDeps builds the named dependency set for HealthReady.
func ReadinessDeps(db, redis, pubsub pinger) map[string]pinger {
	return map[string]pinger{
		"postgres": db,
		"redis":    redis,
		"pubsub":   pubsub,
	}
}
