package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"restomap.org/internal/auth"
	"restomap.org/internal/obs"
	"restomap.org/web/static"
)

// ReadyProbe is a simple readiness check (database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer: route table, auth gate and JSON envelope helpers.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth  *auth.Service
	reset *auth.ResetService
}

func New(rp ReadyProbe, version string, authSvc *auth.Service, resetSvc *auth.ResetService) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authSvc,
		reset:      resetSvc,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/api/auth/inscription", a.handleRegister)
	a.mux.HandleFunc("/api/auth/connexion", a.handleLogin)
	a.mux.HandleFunc("/api/auth/profil", a.handleProfile)

	// admin
	a.mux.HandleFunc("/api/admin/statistiques", a.handleAdminStats)
	a.mux.HandleFunc("/api/admin/utilisateurs", a.handleAdminUsers)

	// password reset
	a.mux.HandleFunc("/api/reset-password/request", a.handleResetRequest)
	a.mux.HandleFunc("/api/reset-password/verify/", a.handleResetVerify)
	a.mux.HandleFunc("/api/reset-password/confirm", a.handleResetConfirm)

	// embedded client assets (session controller script)
	a.mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(static.EmbeddedFS()))))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// --- operational handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "restomap-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "restomap-api",
		"version": a.version,
	})
}
