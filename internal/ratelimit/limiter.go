package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	keyUpload = "rl:upload:org:%s"
	keyLogin  = "rl:login:%s"
)

// Policy is one bucket shape. A zero Burst disables it.
type Policy struct {
	Rate  float64
	Burst int
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

var allow = Decision{Allowed: true}

// Limiter applies the upload and login policies. It fails open: when redis is
// not configured or unreachable the request is allowed and the error logged.
type Limiter struct {
	bucket  *TokenBucket
	upload  Policy
	login   Policy
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewLimiter(bucket *TokenBucket, cfg config.Config, log *zap.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{
		bucket:  bucket,
		upload:  Policy{Rate: cfg.RateLimit.UploadRefillRate, Burst: cfg.RateLimit.UploadCapacity},
		login:   Policy{Rate: cfg.RateLimit.LoginRefillRate, Burst: cfg.RateLimit.LoginCapacity},
		log:     log.Named("ratelimit"),
		metrics: m,
	}
}

// AllowUpload spends one upload token of the organization.
func (l *Limiter) AllowUpload(ctx context.Context, orgID string) Decision {
	if l == nil {
		return allow
	}
	return l.check(ctx, "upload", fmt.Sprintf(keyUpload, orgID), l.upload)
}

// AllowLogin spends one login token of the client address.
func (l *Limiter) AllowLogin(ctx context.Context, clientIP string) Decision {
	if l == nil {
		return allow
	}
	return l.check(ctx, "login", fmt.Sprintf(keyLogin, clientIP), l.login)
}

func (l *Limiter) check(ctx context.Context, endpoint, key string, p Policy) Decision {
	if l.bucket == nil || p.Burst <= 0 || p.Rate <= 0 {
		return allow
	}
	res, err := l.bucket.Allow(ctx, key, p.Rate, p.Burst)
	if err != nil {
		l.log.Warn("rate limiter unavailable, allowing request",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return allow
	}
	if !res.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, endpoint)
		return Decision{Allowed: false, RetryAfter: res.RetryAfter}
	}
	return allow
}
