package security

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-resto/internal/common"
)

// BodyLimit caps request payload size. Overrides raise or lower the cap for path
// prefixes, e.g. multipart proof uploads.
type BodyLimit struct {
	Max       int64
	Overrides map[string]int64
}

// Middleware rejects requests whose declared length exceeds the cap with 413 and wraps
// the body in http.MaxBytesReader so streamed bodies fail while decoding.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := b.limitFor(r.URL.Path)
		if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) limitFor(path string) int64 {
	best, limit := -1, b.Max
	for prefix, max := range b.Overrides {
		if strings.HasPrefix(path, prefix) && len(prefix) > best {
			best, limit = len(prefix), max
		}
	}
	return limit
}
