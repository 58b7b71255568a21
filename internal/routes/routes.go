package routes

import (
	"net/http"

	"github.com/magnogrupo/portal/internal/app"
	"github.com/magnogrupo/portal/internal/handler"
	"github.com/magnogrupo/portal/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	profile := handler.NewProfileHandler(app.ProfileService)
	guide := handler.NewGuideHandler(app.GuideService)
	placesProxy := handler.NewPlacesHandler(app.PlacesClient)
	submission := handler.NewSubmissionHandler(app.SubmissionService, app.AuthService, app.Staging, app.MediaStorage, app.Cfg.JWTExpiry)
	admin := handler.NewAdminHandler(app.SubmissionService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)

	// Content
	mux.HandleFunc("GET /api/guides", guide.List)
	mux.HandleFunc("GET /api/guides/{slug}", guide.Get)

	// Address suggestions for the wizard
	mux.HandleFunc("GET /api/places/autocomplete", placesProxy.Autocomplete)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.SignUp))
	mux.HandleFunc("POST /auth/forgot-password", rateLimiter(auth.ForgotPassword))
	mux.HandleFunc("POST /auth/reset-password/{token}", rateLimiter(auth.ResetPassword))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(auth.Me))

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(auth.GoogleAuth))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))

	// ============================================================================
	// SUBMISSION WIZARD
	// ============================================================================

	// Open to guests: the wizard runs before an account exists
	mux.HandleFunc("GET /api/submissions/resume", submission.Resume)
	mux.HandleFunc("POST /api/submissions/validate-step", submission.ValidateStep)
	mux.HandleFunc("POST /api/submissions/upload/{field}", submission.UploadFiles)
	mux.HandleFunc("POST /api/submissions/prepare", submission.Prepare)

	// Owner-only
	mux.HandleFunc("POST /api/submissions/draft", middleware.RequireAuth(submission.SaveDraft))
	mux.HandleFunc("GET /api/submissions", middleware.RequireAuth(submission.List))
	mux.HandleFunc("GET /api/submissions/{id}", middleware.RequireAuth(submission.Get))
	mux.HandleFunc("POST /api/submissions/{id}/sign", middleware.RequireAuth(submission.Sign))
	mux.HandleFunc("GET /api/submissions/{id}/documents", middleware.RequireAuth(submission.Documents))

	// Profile
	mux.HandleFunc("PATCH /api/profile", middleware.RequireAuth(profile.Update))
	mux.HandleFunc("POST /api/profile/password", middleware.RequireAuth(profile.ChangePassword))

	// ============================================================================
	// ADMIN REVIEW
	// ============================================================================

	mux.HandleFunc("GET /api/admin/submissions", middleware.RequireAdmin(admin.Queue))
	mux.HandleFunc("GET /api/admin/submissions/{id}", middleware.RequireAdmin(admin.Get))
	mux.HandleFunc("POST /api/admin/submissions/{id}/decision", middleware.RequireAdmin(admin.Decide))
	mux.HandleFunc("POST /api/admin/submissions/{id}/publish", middleware.RequireAdmin(admin.Publish))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserRepository, app.ProfileRepository),
		middleware.WizardSession,
	)
}
