package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader = "X-Idempotency-Key"
	IdempotencyKeyPrefix = "idempotency:"
)

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

// idempotencyRecord is the Redis value stored per key
type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
}

// RedisClient is the subset of go-redis the middleware uses
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight request holds the key
	ProcessingTTL time.Duration
	// RequireKey rejects requests without the header instead of passing them through
	RequireKey bool
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(rc RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         rc,
		TTL:           5 * time.Minute,
		ProcessingTTL: 30 * time.Second,
	}
}

// IdempotencyMiddleware replays the stored response for a repeated X-Idempotency-Key.
// Redis failures fail open.
func IdempotencyMiddleware(cfg *IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if cfg.RequireKey {
				c.AbortWithStatusJSON(http.StatusBadRequest, response.Error("MISSING_IDEMPOTENCY_KEY", "X-Idempotency-Key header is required"))
				return
			}
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		hash := requestHash(c, body)
		redisKey := idempotencyRedisKey(c, key)
		ctx := c.Request.Context()

		existing, err := getRecord(ctx, cfg.Redis, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}
		if existing != nil {
			replay(c, existing, hash)
			return
		}

		record := &idempotencyRecord{Status: statusProcessing, RequestHash: hash}
		data, _ := json.Marshal(record)
		ok, err := cfg.Redis.SetNX(ctx, redisKey, string(data), cfg.ProcessingTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			if existing, _ = getRecord(ctx, cfg.Redis, redisKey); existing != nil {
				replay(c, existing, hash)
				return
			}
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}, status: http.StatusOK}
		c.Writer = rw
		c.Next()

		// Server errors release the key so the client can retry
		if rw.status >= http.StatusInternalServerError {
			cfg.Redis.Del(ctx, redisKey)
			return
		}

		record.Status = statusCompleted
		record.ResponseCode = rw.status
		record.ResponseBody = rw.body.String()
		data, _ = json.Marshal(record)
		cfg.Redis.Set(ctx, redisKey, string(data), cfg.TTL)
	}
}

func replay(c *gin.Context, rec *idempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, response.Error("IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request"))
	case rec.Status == statusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict, response.Error("REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed"))
	default:
		c.Data(rec.ResponseCode, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
	}
}

type capturingWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// idempotencyRedisKey scopes the client key to the authenticated user
func idempotencyRedisKey(c *gin.Context, key string) string {
	if userID, ok := GetUserID(c); ok {
		return IdempotencyKeyPrefix + userID + ":" + key
	}
	return IdempotencyKeyPrefix + key
}

func requestHash(c *gin.Context, body []byte) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	if userID, ok := GetUserID(c); ok {
		h.Write([]byte(userID))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getRecord(ctx context.Context, rc RedisClient, key string) (*idempotencyRecord, error) {
	raw, err := rc.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
