package httpx

import "net/http"

// RequireRole allows the request through only when the authenticated role
// claim matches one of the given roles. This is the server-side authorization
// boundary; client-side tab gating is a convenience layered on top of it.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromCtx(r.Context())
			if _, ok := want[role]; !ok {
				writeRoleError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticatedRole rejects sessions whose role is still unset. A user
// who registered without an invite has no role until an admin assigns one,
// and is gated out of all functional routes.
func RequireAuthenticatedRole() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromCtx(r.Context()) == "" {
				writeRoleError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRoleError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "forbidden",
		"error_description": "Your role does not permit this operation",
	})
}
