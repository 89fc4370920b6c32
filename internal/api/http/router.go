package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/jwtx"
	"github.com/obralimpa/obralimpa/pkg/slogx"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService   *service.AuthService
	InviteService *service.InviteService
	SiteService   *service.SiteService
	TaskService   *service.TaskService
	UserService   *service.UserService
	MFAService    *service.MFAService
	UserEvents    *service.UserEvents
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerInvites()
	r.registerSites()
	r.registerTasks()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
//
//	@title			Obra Limpa API
//	@version		0.1.0
//	@description	Task management for construction sites: invite-gated onboarding, role-gated navigation surfaces, per-site tasks and progress.
//
//	@contact.name				Obra Limpa Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints get the strict limit to slow brute force.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMe() {
	h := &MeHandler{
		UserService: r.UserService,
		MFAService:  r.MFAService,
		Events:      r.UserEvents,
	}

	// /me works for every authenticated account, including unset roles:
	// a gated-out user still needs its own record to render the lobby.
	authed := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /v1/me", authed(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PATCH /v1/me", authed(http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("POST /v1/me/password", authed(http.HandlerFunc(h.HandleChangePassword)))
	r.Mux.Handle("POST /v1/me/mfa/enroll", authed(http.HandlerFunc(h.HandleMFAEnroll)))
	r.Mux.Handle("POST /v1/me/mfa/verify", authed(http.HandlerFunc(h.HandleMFAVerify)))
	r.Mux.Handle("POST /v1/me/mfa/disable", authed(http.HandlerFunc(h.HandleMFADisable)))

	// The watch stream is long lived, so no per-request rate limit.
	r.Mux.Handle("GET /v1/me/watch",
		httpx.Chain(http.HandlerFunc(h.HandleWatch),
			httpx.AuthnMiddleware(r.verifier),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{InviteService: r.InviteService}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/invites", adminOnly(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /v1/invites", adminOnly(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("DELETE /v1/invites/{id}", adminOnly(http.HandlerFunc(h.HandleCancel)))
}

func (r *Router) registerSites() {
	h := &SiteHandler{
		SiteService: r.SiteService,
		TaskService: r.TaskService,
		UserService: r.UserService,
	}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	member := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAuthenticatedRole(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("POST /v1/sites", adminOnly(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("PATCH /v1/sites/{id}", adminOnly(http.HandlerFunc(h.HandleUpdateStatus)))
	r.Mux.Handle("GET /v1/sites", member(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /v1/sites/{id}", member(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("GET /v1/sites/{id}/progress", member(http.HandlerFunc(h.HandleProgress)))
}

func (r *Router) registerTasks() {
	h := &TaskHandler{
		TaskService: r.TaskService,
		UserService: r.UserService,
	}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	member := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAuthenticatedRole(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("POST /v1/tasks", adminOnly(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /v1/tasks", member(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("PATCH /v1/tasks/{id}", member(http.HandlerFunc(h.HandleUpdate)))
}

func (r *Router) registerUsers() {
	h := &UserHandler{UserService: r.UserService}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/users", adminOnly(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /v1/users/{id}", adminOnly(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PATCH /v1/users/{id}/role", adminOnly(http.HandlerFunc(h.HandleChangeRole)))
	r.Mux.Handle("PUT /v1/users/{id}/sites", adminOnly(http.HandlerFunc(h.HandleAssignSites)))
	r.Mux.Handle("DELETE /v1/users/{id}", adminOnly(http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
