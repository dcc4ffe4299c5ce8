package panel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/xid"
)

// contextKey keeps the nonce key private to this package.
type contextKey string

const nonceKey contextKey = "nonce"

// WithNonce generates a fresh nonce per request, stores it in the request
// context and sends a Content-Security-Policy that only lets inline styles
// and scripts carrying that nonce run.
func WithNonce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := xid.New().String()
		w.Header().Set("Content-Security-Policy", fmt.Sprintf(
			"default-src 'none'; style-src 'nonce-%[1]s'; script-src 'nonce-%[1]s'; img-src https:; connect-src 'self'",
			nonce,
		))
		ctx := context.WithValue(r.Context(), nonceKey, nonce)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NonceFromContext returns the request's nonce, or "" outside WithNonce.
func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey).(string)
	return nonce
}
