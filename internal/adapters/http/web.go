package web

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/adapters/http/perf"
	"groomdesk/internal/adapters/notify"
	"groomdesk/internal/adapters/storage/localstate"
	"groomdesk/internal/application/calendarsession"
	"groomdesk/internal/domain/account"
)

// Deps holds the collaborators every handler uses.
type Deps struct {
	// API is the unauthenticated remote client; handlers derive per-user clients from it.
	API *api.Client
	// Local holds the customer cache, local users and alimtalk templates.
	Local  localstate.Store
	Sender notify.Sender
	// SearchMinChars is the shortest guardian query that triggers a lookup.
	SearchMinChars int
}

// Options configures the middleware chain.
type Options struct {
	StaticDir      string
	CSRFKey        []byte // 32 bytes; generated per start when nil
	SecureCookies  bool
	TrustedOrigins []string
	SlowRequestMs  int
	Collector      *perf.Collector
}

// Global dependencies (set by NewMux)
var deps *Deps

// Global session store instance
var sessions *middleware.SessionStore

// Global calendar sessions, keyed by dashboard session token
var calendars *calendarsession.Manager

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// NewMux wires HTTP handlers for the dashboard.
// PRE: d.API and d.Local are non-nil
func NewMux(d *Deps, opts Options) http.Handler {
	if d.Sender == nil {
		d.Sender = notify.NewNoopSender()
	}
	deps = d
	perfCollector = opts.Collector
	sessions = middleware.NewSessionStore()
	calendars = calendarsession.NewManager()
	sessions.OnExpire(calendars.Remove)
	middleware.SecureCookies = opts.SecureCookies

	mux := http.NewServeMux()
	if opts.StaticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}
	registerRoutes(mux)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = randomKey()
		slog.Warn("csrf_key_generated", "reason", "GROOMDESK_CSRF_KEY not set; form tokens will not survive restart")
	}

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	go sweepLimiter(limiter)

	// Request order: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.SlowRequestMs),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/register", handleRegister)

	mux.HandleFunc("/calendar", handleCalendarPage)
	mux.HandleFunc("/api/calendar", handleCalendar)
	mux.HandleFunc("/api/calendar/navigate", handleCalendarNavigate)

	mux.HandleFunc("/api/appointments/form", handleAppointmentForm)
	mux.HandleFunc("/api/appointments", handleAppointments)
	mux.HandleFunc("/api/appointments/status", handleAppointmentStatus)
	mux.HandleFunc("/api/appointments/delete", handleAppointmentDelete)

	mux.HandleFunc("/api/customers/search", handleCustomerSearch)
	mux.HandleFunc("/api/customers/select", handleCustomerSelect)
	mux.HandleFunc("/customers", handleCustomersPage)
	mux.HandleFunc("/api/customers", handleCustomers)
	mux.HandleFunc("/api/customers/import", handleCustomerImport)
	mux.HandleFunc("/customers/template.csv", handleCustomerTemplate)

	mux.HandleFunc("/sales", handleSalesPage)
	mux.HandleFunc("/api/sales", handleSales)

	mux.HandleFunc("/settings", handleSettingsPage)
	mux.HandleFunc("/api/settings/templates", handleTemplates)
	mux.HandleFunc("/api/settings/templates/preview", handleTemplatePreview)

	// Owner-only routes; handlers re-check the role for direct calls.
	ownerOnly := middleware.RequireRole(account.RoleOwner)
	mux.Handle("/api/settings/templates/reset", ownerOnly(http.HandlerFunc(handleTemplatesReset)))
	mux.Handle("/api/reminders", ownerOnly(http.HandlerFunc(handleReminders)))
	mux.Handle("/admin/perf", ownerOnly(http.HandlerFunc(handleAdminPerf)))
}

func sweepLimiter(limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		limiter.Sweep(5 * time.Minute)
	}
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("csrf key: " + err.Error())
	}
	return key
}
