package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/auth"
)

// corsMiddleware mirrors the teacher's permissive CORS handling for the
// score/train endpoints a browser-based console might call directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Outcome-Signature-256")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the chi router for a Handler, protecting every mutating
// engine endpoint with OIDC and the outcome webhook with HMAC signature
// verification (spec §1's "thin plumbing" external to the engine core).
func NewRouter(h *Handler, authMiddleware *auth.Middleware, signatureMiddleware *auth.SignatureMiddleware) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)

	r.With(authMiddleware.RequireScope(auth.ScopeGraphWrite)).Post("/tools", h.InsertTool)
	r.With(authMiddleware.RequireScope(auth.ScopeGraphWrite)).Post("/capabilities", h.InsertCapability)
	r.With(authMiddleware.RequireScope(auth.ScopeGraphWrite)).Patch("/capabilities/{id}/success-rate", h.UpdateSuccessRate)

	r.Post("/score", h.Score)
	r.With(authMiddleware.RequireScope(auth.ScopeTrain)).Post("/train", h.Train)

	r.With(authMiddleware.RequireScope(auth.ScopeParamsRead)).Get("/params", h.ExportParams)
	r.With(authMiddleware.RequireScope(auth.ScopeParamsWrite)).Post("/params", h.ImportParams)

	r.With(signatureMiddleware.VerifySignature).Post("/outcomes", h.Outcome)

	return r
}
