package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zmagaj/questlog/config"
)

func signupKey(parts ...string) string {
	return "signup:" + strings.Join(parts, ":")
}

// SignupCooldownTry enforces a short cooldown between signup attempts per IP.
// Fails open when Redis is unreachable.
func SignupCooldownTry(ip string) bool {
	cfg := config.Get()
	sec := cfg.SignupCooldownSec
	if sec <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := signupKey("cooldown", ip)
	ok, err := cli.SetNX(ctx, key, "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// SignupDailyLimitCheck allows up to N successful signups per day per IP.
func SignupDailyLimitCheck(ip string) bool {
	cfg := config.Get()
	limit := cfg.SignupMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := signupKey("succday", ip, time.Now().Format("20060102"))
	n, err := cli.Get(ctx, key).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < limit
}

// SignupDailyIncrement increments the success counter for today.
func SignupDailyIncrement(ip string) {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := signupKey("succday", ip, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
		_ = cli.Expire(ctx, key, ttl).Err()
	}
}
