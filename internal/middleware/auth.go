// Package middleware provides HTTP middleware for the API gateway.
package middleware

import (
	"context"
	"net/http"
	"strings"

	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/logging"
	"github.com/lotta-llamas/api/internal/token"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// AuthContext carries the authenticated wallet and its asset grants.
type AuthContext struct {
	Address string
	Assets  []string
	TokenID string
}

// FromContext returns the AuthContext set by the gate, if any.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(AuthContext)
	return ac, ok
}

// WithAuthContext attaches an AuthContext, used by handler tests.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// Gate validates the capability token on every request behind it.
//
// Clients send the token in Authorization (raw or with a Bearer prefix)
// and repeat their address in the Address header. A token whose embedded
// address does not match the header is rejected, as is any token whose
// jti has been revoked.
type Gate struct {
	issuer   *token.Issuer
	denylist token.Denylist
	log      *logging.Logger
}

// NewGate creates the authentication gate. denylist may be nil when
// revocation is not configured.
func NewGate(issuer *token.Issuer, denylist token.Denylist, log *logging.Logger) *Gate {
	return &Gate{issuer: issuer, denylist: denylist, log: log}
}

// Handler returns the gate as a middleware handler.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		address := r.Header.Get("Address")

		if rawToken == "" || address == "" {
			httputil.WriteError(w, svcerrors.MissingParams("Missing params"))
			return
		}

		claims, err := g.issuer.Validate(rawToken)
		if err != nil {
			g.log.LogSecurityEvent(r.Context(), "token_rejected", map[string]interface{}{
				"path":   r.URL.Path,
				"reason": err.Error(),
			})
			httputil.WriteError(w, err)
			return
		}

		if claims.Address != address {
			g.log.LogSecurityEvent(r.Context(), "address_mismatch", map[string]interface{}{
				"path":    r.URL.Path,
				"claimed": address,
			})
			httputil.WriteError(w, svcerrors.Unauthorized("Address mismatch"))
			return
		}

		if g.denylist != nil {
			revoked, err := g.denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				httputil.WriteError(w, svcerrors.Internal("Internal server error", err))
				return
			}
			if revoked {
				httputil.WriteError(w, svcerrors.Unauthorized("Token revoked"))
				return
			}
		}

		ctx := WithAuthContext(r.Context(), AuthContext{
			Address: claims.Address,
			Assets:  claims.Assets,
			TokenID: claims.ID,
		})
		ctx = logging.WithAddress(ctx, claims.Address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
