package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/middleware/ratelimit"
	"budgetwise/internal/middleware/security"
	"budgetwise/internal/middleware/trace"
	"budgetwise/internal/ports"
	"budgetwise/internal/services"
	appweb "budgetwise/web"
)

const (
	// sessionIdle is how long an unused ExpenseStore is kept.
	sessionIdle = 30 * time.Minute
	// loadTimeout bounds a dashboard load.
	loadTimeout = 10 * time.Second
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Sessions *services.Sessions
	Verifier *auth.Verifier
	// Advice feeds the dashboard's advice panel. Nil shows the fallback message.
	Advice ports.AdviceProvider
	// Generator serves POST /api/budget-advice. Nil answers 503.
	Generator ports.AdviceGenerator
	// Ready reports backend health for /readyz.
	Ready              func(ctx context.Context) error
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	started   time.Time

	stop         context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("sessions are required")
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	clientIP, err := security.NewClientIP()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates: t,
		deps:      deps,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}, logger),
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = auth.Middleware(deps.Verifier, logger)(h)
	h = limitMutations(s.limiter.Middleware(clientIP.Extract))(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(clientIP.Extract, logger).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.limiter.Run(ctx)
	go s.expireSessions(ctx)

	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("/expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /ui/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /ui/expenses", s.handleExpenseList)
	mux.HandleFunc("GET /ui/advice", s.handleAdvicePanel)
	mux.HandleFunc("POST /ui/retry", s.handleRetry)

	mux.Handle("GET /api/expenses", auth.Require(http.HandlerFunc(s.handleAPIListExpenses)))
	mux.Handle("POST /api/expenses", auth.Require(http.HandlerFunc(s.handleAPICreateExpense)))
	mux.Handle("GET /api/summary", auth.Require(http.HandlerFunc(s.handleAPISummary)))
	mux.Handle("POST /api/budget-advice", auth.Require(http.HandlerFunc(s.handleBudgetAdvice)))
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"amount":  core.FormatAmount,
		"percent": core.FormatPercent,
	}
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// limitMutations applies limit to non-GET requests only; page loads and
// partial refreshes are not throttled.
func limitMutations(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func (s *Server) expireSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.deps.Sessions.Expire(sessionIdle); n > 0 {
				s.logger.DebugContext(ctx, "Expired idle sessions", log.FieldCount, n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
