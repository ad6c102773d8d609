package api

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/utils"
)

type ctxKey string

const requestIDKey ctxKey = "requestID"

const (
	ctxUserID = "userID"
	ctxUser   = "currentUser"
)

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// AuthMiddleware validates the bearer token and loads the active user it names.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := utils.ParseJWT(jwtSecret, parts[1])
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}
		user, err := loadUser(c.Request.Context(), uid)
		if err != nil {
			if database.IsNoRows(err) {
				unauthorized(c, "Could not validate credentials")
				return
			}
			logging.L().Error("load token user", zap.Int64("user_id", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		if !user.IsActive {
			unauthorized(c, "Inactive user")
			return
		}
		c.Set(ctxUserID, user.ID)
		c.Set(ctxUser, user)
		c.Next()
	}
}

// currentUser returns the user loaded by AuthMiddleware.
func currentUser(c *gin.Context) (database.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return database.User{}, false
	}
	u, ok := v.(database.User)
	return u, ok
}

// RequestIDMiddleware ensures every request has an X-Request-ID. If absent, generate one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey, rid)
		c.Request = c.Request.WithContext(ctx)
		c.Set("requestID", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

// --- API Version middleware ---
// Reads Wellness-Version request header; if absent, uses default; always sets X-Wellness-Version in response.
func VersionMiddleware(defaultVersion string) gin.HandlerFunc {
	if defaultVersion == "" {
		defaultVersion = "2025-01-01"
	}
	return func(c *gin.Context) {
		ver := c.GetHeader("Wellness-Version")
		if ver == "" {
			ver = defaultVersion
		}
		c.Set("apiVersion", ver)
		c.Writer.Header().Set("X-Wellness-Version", ver)
		c.Next()
	}
}

// ipLimiter keeps one token bucket per client.
type ipLimiter struct {
	mu       sync.Mutex
	clients  map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastScan time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*visitor),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idle:    10 * time.Minute,
	}
}

func (l *ipLimiter) allow(ip string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastScan) > l.idle {
		for k, v := range l.clients {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.clients, k)
			}
		}
		l.lastScan = now
	}
	v, ok := l.clients[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = v
	}
	v.lastSeen = now
	r := v.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if net.ParseIP(ip) == nil {
		ip = "unknown"
	}
	return ip
}

func tooManyRequests(c *gin.Context, limiter string, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	RecordRateLimited(limiter)
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts. Try again later."})
}

// LoginRateLimitMiddleware limits login attempts per client IP. With Redis
// configured the limit is shared across instances in one-minute windows;
// otherwise, or when Redis fails, an in-memory token bucket applies.
func LoginRateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 20
	}
	local := newIPLimiter(perMinute)
	return func(c *gin.Context) {
		ip := clientKey(c)
		if rc := redisClient; rc != nil {
			now := time.Now().UTC()
			key := fmt.Sprintf("wellness:rl:login:%s:%s", ip, now.Format("200601021504"))
			ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
			n, err := rc.Incr(ctx, key).Result()
			if err == nil {
				_ = rc.Expire(ctx, key, 61*time.Second).Err()
			}
			cancel()
			if err == nil {
				if int(n) > perMinute {
					tooManyRequests(c, "login_redis", time.Duration(60-now.Second())*time.Second)
					return
				}
				c.Next()
				return
			}
			logging.L().Warn("redis rate limit unavailable, using local limiter", zap.Error(err))
		}
		if ok, retry := local.allow(ip); !ok {
			tooManyRequests(c, "login_local", retry)
			return
		}
		c.Next()
	}
}

// --- Idempotency middleware (Redis-backed if configured, else in-memory) ---
type captureWriter struct {
	gin.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

type idemRecord struct {
	pending bool
	status  int
	body    []byte
	ts      time.Time
}

var (
	idemStore     sync.Map // key -> *idemRecord
	idemLastSweep atomic.Int64
)

const (
	idemTTL        = 24 * time.Hour
	idemPendingTTL = 2 * time.Minute
	idemPending    = "pending"
)

type idemState int

const (
	idemReserved idemState = iota
	idemInFlight
	idemDone
)

// idemTicket remembers which store holds a reservation.
type idemTicket struct {
	key   string
	redis bool
}

// IdempotencyMiddleware replays the first response of a POST carrying an
// Idempotency-Key header. Keys are scoped per user and route and are reserved
// before the handler runs, so a concurrent duplicate gets 409. 5xx responses
// release the key. Must run after AuthMiddleware.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if key == "" {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		storageKey := fmt.Sprintf("wellness:idem:%d:%s:%s", c.GetInt64(ctxUserID), path, key)
		ticket, state, rec := idemReserve(c.Request.Context(), storageKey)
		switch state {
		case idemDone:
			c.Writer.Header().Set("X-Idempotent-Replay", "true")
			c.Data(rec.status, "application/json; charset=utf-8", rec.body)
			c.Abort()
			return
		case idemInFlight:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this Idempotency-Key is still in progress"})
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		saved := false
		defer func() {
			if !saved {
				idemRelease(ticket)
			}
		}()
		c.Next()
		if cw.status == 0 || cw.status >= 500 {
			return
		}
		idemSave(ticket, cw.status, cw.buf.Bytes())
		saved = true
	}
}

// idemReserve claims key for this request or reports the stored outcome.
// Redis errors fall back to the in-process store.
func idemReserve(ctx context.Context, key string) (idemTicket, idemState, idemRecord) {
	if rc := redisClient; rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, idemPending, idemPendingTTL).Result()
		if err == nil {
			t := idemTicket{key: key, redis: true}
			if ok {
				return t, idemReserved, idemRecord{}
			}
			data, gerr := rc.Get(ctx, key).Bytes()
			if gerr == nil {
				if rec, ok := decodeIdem(data); ok {
					return t, idemDone, rec
				}
				return t, idemInFlight, idemRecord{}
			}
			err = gerr
		}
		logging.L().Warn("redis idempotency unavailable, using local store", zap.Error(err))
	}
	now := time.Now()
	idemSweep(now)
	t := idemTicket{key: key}
	for {
		v, loaded := idemStore.LoadOrStore(key, &idemRecord{pending: true, ts: now})
		if !loaded {
			return t, idemReserved, idemRecord{}
		}
		rec := v.(*idemRecord)
		if idemExpired(rec, now) {
			idemStore.CompareAndDelete(key, v)
			continue
		}
		if rec.pending {
			return t, idemInFlight, idemRecord{}
		}
		return t, idemDone, *rec
	}
}

func idemExpired(rec *idemRecord, now time.Time) bool {
	ttl := idemTTL
	if rec.pending {
		ttl = idemPendingTTL
	}
	return now.Sub(rec.ts) > ttl
}

// idemSweep drops expired local entries, at most once a minute.
func idemSweep(now time.Time) {
	last := idemLastSweep.Load()
	if now.UnixNano()-last < int64(time.Minute) || !idemLastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	idemStore.Range(func(k, v any) bool {
		if idemExpired(v.(*idemRecord), now) {
			idemStore.CompareAndDelete(k, v)
		}
		return true
	})
}

// stored format: <status>\n<body>
func decodeIdem(data []byte) (idemRecord, bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return idemRecord{}, false
	}
	s, err := strconv.Atoi(string(data[:i]))
	if err != nil {
		return idemRecord{}, false
	}
	return idemRecord{status: s, body: data[i+1:]}, true
}

func idemSave(t idemTicket, status int, body []byte) {
	if t.redis {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		payload := []byte(strconv.Itoa(status) + "\n")
		payload = append(payload, body...)
		if err := redisClient.Set(ctx, t.key, payload, idemTTL).Err(); err != nil {
			logging.L().Warn("idempotency store failed", zap.Error(err))
		}
		return
	}
	idemStore.Store(t.key, &idemRecord{status: status, body: append([]byte(nil), body...), ts: time.Now()})
}

func idemRelease(t idemTicket) {
	if t.redis {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		if err := redisClient.Del(ctx, t.key).Err(); err != nil {
			logging.L().Warn("idempotency release failed", zap.Error(err))
		}
		return
	}
	idemStore.Delete(t.key)
}
