package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

type clientIPKey struct{}

type identityKey struct{}

// clientIPMiddleware stores the caller's address for rate limiting. It
// expects chi's RealIP middleware to have rewritten RemoteAddr already.
func clientIPMiddleware(ctx huma.Context, next func(huma.Context)) {
	addr := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	next(huma.WithValue(ctx, clientIPKey{}, addr))
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	if ip == "" {
		return "unknown"
	}
	return ip
}

// requireRoles authenticates the bearer token and admits only the given roles.
func requireRoles(api huma.API, auth domain.Authenticator, roles ...domain.Role) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !ok || token == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := auth.Authenticate(ctx.Context(), token)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.HasRole(roles...) {
			_ = huma.WriteErr(api, ctx, http.StatusForbidden, "forbidden")
			return
		}

		next(huma.WithValue(ctx, identityKey{}, id))
	}
}

func identity(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}
