package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var smsRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisSMSRateLimiter caps outbound texts per recipient phone number using a
// fixed-window counter in Redis, so the cap holds across service replicas.
// It fails open: a missing client or a zero cap never blocks a send.
type RedisSMSRateLimiter struct {
	client       redis.UniversalClient
	prefix       string
	perRecipient int
	window       time.Duration
}

func NewRedisSMSRateLimiter(client redis.UniversalClient, prefix string, perRecipient int, window time.Duration) *RedisSMSRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "hawala:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if window <= 0 {
		window = time.Minute
	}

	return &RedisSMSRateLimiter{
		client:       client,
		prefix:       trimmedPrefix,
		perRecipient: perRecipient,
		window:       window,
	}
}

// AllowSend consumes one send slot for the phone number and reports whether
// the recipient is still under the cap for the current window.
func (r *RedisSMSRateLimiter) AllowSend(ctx context.Context, phone string) (allowed bool, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || r.perRecipient <= 0 {
		return true, 0, nil
	}

	recipient := strings.TrimSpace(phone)
	if recipient == "" {
		return true, 0, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:sms:%s", r.prefix, recipient)
	rawResult, err := smsRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	currentCount, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return currentCount <= int64(r.perRecipient), retryAfter, nil
}
