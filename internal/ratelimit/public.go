package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/uddoktahub/billing/internal/config"
)

const (
	keyPublicIntake  = "public:intake:ip:%s"
	keyPublicPayment = "public:payment:ip:%s"
)

// PublicLimiter throttles anonymous traffic per client IP. A nil
// limiter allows everything.
type PublicLimiter struct {
	enabled bool
	bucket  *TokenBucket

	intakeRate   float64
	intakeBurst  int
	paymentRate  float64
	paymentBurst int
}

func NewPublicLimiter(cfg config.Config) *PublicLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	return &PublicLimiter{
		enabled:      true,
		bucket:       NewTokenBucket(client),
		intakeRate:   0.2, // one intake every five seconds sustained
		intakeBurst:  5,
		paymentRate:  0.5,
		paymentBurst: 10,
	}
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *PublicLimiter) AllowIntake(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPublicIntake, strings.TrimSpace(clientIP)), l.intakeRate, l.intakeBurst)
}

func (l *PublicLimiter) AllowPayment(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPublicPayment, strings.TrimSpace(clientIP)), l.paymentRate, l.paymentBurst)
}
