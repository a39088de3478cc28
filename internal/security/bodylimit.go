package security

import (
	"net/http"

	"github.com/noah-isme/backend-photoedit/internal/common"
)

// BodyLimit caps request payloads.
type BodyLimit struct {
	Max int64
}

// Middleware answers 413 PAYLOAD_TOO_LARGE when the declared length exceeds
// Max and caps the body reader for chunked uploads, so decoding fails once the
// limit is crossed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]int64{"max_bytes": b.Max})
			return
		}
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		}
		next.ServeHTTP(w, r)
	})
}
