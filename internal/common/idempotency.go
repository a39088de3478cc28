package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// HeaderIdempotencyKey is the request header carrying the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. Keys are scoped
// to the caller and route so two users cannot collide on the same key.
type Idem struct {
	R   redis.Cmdable
	TTL time.Duration
}

// Sha256Hex returns the hex encoded SHA-256 digest of s.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func idemKey(r *http.Request, header string) string {
	scope := RateKey(r)
	return "idem:" + Sha256Hex(scope+"|"+r.Method+" "+r.URL.Path+"|"+header)
}

// Middleware enforces idempotency semantics for write endpoints. A key is
// released again when the handler answers with a server error so the client may retry.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(HeaderIdempotencyKey)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		key := idemKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		rec := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				_ = i.R.Del(context.Background(), key).Err()
				panic(p)
			}
			if rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

type statusCapture struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusCapture) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}
