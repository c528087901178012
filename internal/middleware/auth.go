package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/audit"
	apperrors "github.com/commentflow/outreach-server-go/internal/errors"
	"github.com/commentflow/outreach-server-go/internal/httputil"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/service"
	"github.com/commentflow/outreach-server-go/internal/util"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// ActAsHeader lets an elevated customer act on behalf of another.
const ActAsHeader = "X-Act-As"

func GetIdentity(ctx context.Context) *service.Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(*service.Identity); ok {
		return identity
	}
	return nil
}

// AuthMiddleware resolves the acting identity from a bearer token and
// an optional impersonation header.
type AuthMiddleware struct {
	customerRepo repository.CustomerRepository
	identities   *service.IdentityService
}

func NewAuthMiddleware(customerRepo repository.CustomerRepository, identities *service.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{customerRepo: customerRepo, identities: identities}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		tokenHash := util.HashToken(token)
		customer, err := m.customerRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: token lookup failed")
			httputil.WriteError(w, apperrors.Internal("Authentication failed"))
			return
		}
		if customer == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			httputil.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		identity, err := m.identities.Resolve(r.Context(), customer, r.Header.Get(ActAsHeader))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
