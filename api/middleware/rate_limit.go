package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/harlowe-labs/scenthq-backend/api/responses"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// BillingRateLimitPolicy defines the throttling parameters for a traffic surface.
type BillingRateLimitPolicy struct {
	name     string
	window   time.Duration
	ipLimit  int
	orgLimit int
}

// NewBillingRateLimitPolicy builds a policy with the supplied window and limits.
func NewBillingRateLimitPolicy(name string, window time.Duration, ipLimit, orgLimit int) BillingRateLimitPolicy {
	return BillingRateLimitPolicy{
		name:     strings.ToLower(strings.TrimSpace(name)),
		window:   window,
		ipLimit:  ipLimit,
		orgLimit: orgLimit,
	}
}

func (p BillingRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.orgLimit > 0)
}

func (p BillingRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "billing"
	}
	return p.name
}

func (p BillingRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:%s:%s", p.normalizedName(), ip)
}

func (p BillingRateLimitPolicy) orgKey(orgID string) string {
	if orgID == "" {
		return ""
	}
	return fmt.Sprintf("rl:org:%s:%s", p.normalizedName(), orgID)
}

// RateLimit enforces per-IP and per-organization counters for billing endpoints.
// It runs after Auth so the org identifier is already on the context.
func RateLimit(policy BillingRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if key := policy.ipKey(ip); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.orgLimit > 0 {
				orgID := OrgIDFromContext(ctx)
				if key := policy.orgKey(orgID); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.orgLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "org", "", orgID, count, policy.orgLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy BillingRateLimitPolicy, scope, ip, orgID string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if orgID != "" {
			fields["org_id"] = orgID
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "billing.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	responses.WriteError(ctx, nil, w, err)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
