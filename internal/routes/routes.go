package routes

import (
	"net/http"

	"github.com/portalautarca/portal/internal/app"
	"github.com/portalautarca/portal/internal/handler"
	"github.com/portalautarca/portal/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService)
	initiatives := handler.NewInitiativeHandler(app.InitiativeService)
	catalog := handler.NewCatalogHandler(app.CatalogService)
	uploads := handler.NewUploadHandler(app.DocumentService)
	backoffice := handler.NewBackofficeHandler(app.InitiativeService, app.ImportService, app.Cfg.UploadMaxBytes)
	admin := handler.NewAdminHandler(app.UserService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Check)

	// Auth (login is rate limited per client IP, see RealIP for proxies)
	loginLimiter := middleware.RateLimit(app.Cfg.LoginRateLimit, app.Cfg.LoginRateWindow)
	mux.HandleFunc("POST /api/auth/login", loginLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))

	// Catalog
	mux.HandleFunc("GET /api/initiatives", initiatives.List)
	mux.HandleFunc("GET /api/initiatives/{id}", initiatives.Detail)
	mux.HandleFunc("GET /api/parishes", catalog.Parishes)
	mux.HandleFunc("GET /api/tags", catalog.Tags)
	mux.HandleFunc("POST /api/tags", middleware.RequireAuth(catalog.CreateTag))
	mux.HandleFunc("GET /api/uploads/{name}", uploads.Serve)

	// ============================================================================
	// BACKOFFICE ROUTES (/api/backoffice/*)
	// ============================================================================

	mux.HandleFunc("GET /api/backoffice/initiatives", middleware.RequireAuth(backoffice.List))
	mux.HandleFunc("GET /api/backoffice/initiatives/{id}", middleware.RequireAuth(backoffice.Get))
	mux.HandleFunc("POST /api/backoffice/parish/initiatives", middleware.RequireAuth(backoffice.Create))
	mux.HandleFunc("PUT /api/backoffice/parish/initiatives/{id}", middleware.RequireAuth(backoffice.Update))

	// Documents
	mux.HandleFunc("POST /api/backoffice/parish/initiatives/{id}/documents", middleware.RequireAuth(backoffice.AddDocument))
	mux.HandleFunc("DELETE /api/backoffice/parish/initiatives/{id}/documents/{docId}", middleware.RequireAuth(backoffice.DeleteDocument))

	// Votes and tags
	mux.HandleFunc("POST /api/backoffice/initiatives/{id}/votes", middleware.RequireAuth(backoffice.AddVote))
	mux.HandleFunc("DELETE /api/backoffice/initiatives/{id}/votes/{voteId}", middleware.RequireAuth(backoffice.DeleteVote))
	mux.HandleFunc("PUT /api/backoffice/initiatives/{id}/tags/{tagId}", middleware.RequireAuth(backoffice.AddTag))
	mux.HandleFunc("DELETE /api/backoffice/initiatives/{id}/tags/{tagId}", middleware.RequireAuth(backoffice.RemoveTag))

	// Bulk operations
	mux.HandleFunc("POST /api/backoffice/initiatives/delete", middleware.RequireAuth(backoffice.BulkDelete))
	mux.HandleFunc("DELETE /api/backoffice/initiatives", middleware.RequireAuth(backoffice.DeleteAll))
	mux.HandleFunc("POST /api/backoffice/initiatives/import", middleware.RequireAuth(backoffice.Import))

	// ============================================================================
	// ADMIN ROUTES (/api/admin/*)
	// ============================================================================

	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(admin.ListUsers))
	mux.HandleFunc("POST /api/admin/users", middleware.RequireAdmin(admin.CreateUser))
	mux.HandleFunc("GET /api/admin/users/{id}", middleware.RequireAdmin(admin.GetUser))
	mux.HandleFunc("PATCH /api/admin/users/{id}", middleware.RequireAdmin(admin.UpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", middleware.RequireAdmin(admin.DeactivateUser))
	mux.HandleFunc("POST /api/admin/parishes", middleware.RequireAdmin(catalog.CreateParish))
	mux.HandleFunc("DELETE /api/admin/parishes/{id}", middleware.RequireAdmin(catalog.DeleteParish))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RealIP(app.Cfg.TrustedProxies),
		middleware.TraceID,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService),
		middleware.Guard(middleware.DefaultPolicies),
	)
}
