package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "courtledger:balance"

// overwriteScript swaps the stored balance and returns the previous one atomically.
var overwriteScript = redis.NewScript(`
local previous = redis.call("GET", KEYS[1])
redis.call("SET", KEYS[1], ARGV[1])
if previous then
  return previous
end
return "0"
`)

// BalanceCache keeps per student-tenant balances in Redis counters.
type BalanceCache struct {
	rdb    *redis.Client
	prefix string
}

// New returns a BalanceCache using prefix for its keys.
func New(rdb *redis.Client, prefix string) *BalanceCache {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &BalanceCache{rdb: rdb, prefix: prefix}
}

func (cache *BalanceCache) key(tenantID booking.TenantID, studentID booking.StudentID) string {
	return cache.prefix + ":" + tenantID.String() + ":" + studentID.String()
}

// CachedBalance returns the stored balance, zero when absent.
func (cache *BalanceCache) CachedBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID) (booking.Amount, error) {
	value, err := cache.rdb.Get(ctx, cache.key(tenantID, studentID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get balance: %w", err)
	}
	return booking.Amount(value), nil
}

// IncrementBalance applies delta with INCRBY.
func (cache *BalanceCache) IncrementBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID, delta booking.Amount) error {
	if err := cache.rdb.IncrBy(ctx, cache.key(tenantID, studentID), delta.Int64()).Err(); err != nil {
		return fmt.Errorf("redis incrby balance: %w", err)
	}
	return nil
}

// OverwriteBalance stores value and returns the previous balance.
func (cache *BalanceCache) OverwriteBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID, value booking.Amount) (booking.Amount, error) {
	result, err := overwriteScript.Run(ctx, cache.rdb, []string{cache.key(tenantID, studentID)}, value.Int64()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis overwrite balance: %w", err)
	}
	switch previous := result.(type) {
	case int64:
		return booking.Amount(previous), nil
	case string:
		parsed, err := strconv.ParseInt(previous, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("redis overwrite balance: %w", err)
		}
		return booking.Amount(parsed), nil
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", result)
	}
}
