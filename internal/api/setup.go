package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Armour007/wellness-backend/internal/cache"
	"github.com/Armour007/wellness-backend/internal/policy"
	"github.com/Armour007/wellness-backend/internal/policy/opa"
)

var (
	jwtSecret   []byte
	tokenTTL    time.Duration = 30 * time.Minute
	engine      policy.Engine = policy.NewTableEngine(policy.DefaultRules())
	viewCache   cache.Cache   = cache.NewMemory()
	redisClient *redis.Client
)

// SetAuth configures token signing.
func SetAuth(secret []byte, ttl time.Duration) {
	jwtSecret = secret
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func SetPolicyEngine(e policy.Engine) { engine = e }

func SetCache(c cache.Cache) { viewCache = c }

// SetRedis enables the distributed login limiter and idempotency store.
func SetRedis(rc *redis.Client) { redisClient = rc }

// NewPolicyEngine builds the engine named in configuration over the default table.
func NewPolicyEngine(ctx context.Context, name string) (policy.Engine, error) {
	if name == policy.EngineRego {
		return opa.New(ctx, policy.DefaultRules())
	}
	return policy.NewTableEngine(policy.DefaultRules()), nil
}
