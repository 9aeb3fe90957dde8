package config

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment and
// verifies it with a short ping. Redis backs the sold-seat response
// cache and the rate limiter; both are optional, so a missing or
// unreachable server yields nil and callers fall back to passthrough
// middleware.
//
// REDIS_URL takes precedence and is parsed as a full redis:// URL.
// Otherwise REDIS_ADDR (host:port) or REDIS_HOST/REDIS_PORT name the
// server, with REDIS_PASSWORD, REDIS_DB and REDIS_TLS filling in the
// rest.
func NewRedisClient() *redis.Client {
	opts, err := redisOptions()
	if err != nil {
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

func redisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return redis.ParseURL(url)
	}
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			db = n
		}
	}
	opts := &redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opts, nil
}
