package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header carrying the client's replay key.
const IdempotencyHeader = "Idempotency-Key"

// IdempotentReplayHeader marks a response served from the idempotency store.
const IdempotentReplayHeader = "Idempotent-Replayed"

const idemPending = "pending"

// Idem provides an Idempotency-Key middleware backed by Redis. Keys are scoped
// to the authenticated user and route so two users cannot collide on a key.
//
// Only successful (2xx) responses are kept and replayed for TTL. Any other outcome
// releases the key, since the request changed nothing and the client may retry it.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

func idemKey(r *http.Request, header string) string {
	user, _ := UserID(r.Context())
	return "idem:" + Sha256Hex(strings.Join([]string{user, r.Method, r.URL.Path, header}, "|"))
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := idemKey(r, header)
		ok, err := i.R.SetNX(ctx, key, idemPending, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		stored := false
		defer func() {
			if stored {
				return
			}
			// also runs when the handler panics
			_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
		}()
		next.ServeHTTP(rec, r)

		if rec.status < http.StatusOK || rec.status >= http.StatusMultipleChoices {
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			return
		}
		stored = i.R.Set(context.WithoutCancel(ctx), key, payload, ttl).Err() == nil
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && string(raw) == idemPending) {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "a request with this idempotency key is still in progress", nil)
		return
	}
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
		return
	}
	var prev storedResponse
	if err := json.Unmarshal(raw, &prev); err != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
		return
	}
	if prev.ContentType != "" {
		w.Header().Set("Content-Type", prev.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(prev.Status)
	_, _ = w.Write(prev.Body)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	s.body.Write(p)
	return s.ResponseWriter.Write(p)
}
