package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budgetwise/internal/advice"
	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"templates":      "ok",
		"sessions":       s.deps.Sessions.Len(),
		"rate_limiter":   s.limiter.ActiveClients(),
		"advice_enabled": s.deps.Advice != nil,
	}

	if s.deps.Ready != nil {
		if err := s.deps.Ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	WriteJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// load refreshes the caller's store when forced or never loaded, then
// returns its state. Load failures are already recorded in the snapshot.
func (s *Server) load(ctx context.Context, force bool) (*services.ExpenseStore, services.Snapshot) {
	store := s.deps.Sessions.Current(ctx)
	if force || store.Snapshot().Status == services.StatusIdle {
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		err := store.Refresh(ctx)
		cancel()
		if err != nil && !errors.Is(err, services.ErrSuperseded) && !errors.Is(err, core.ErrUnauthenticated) {
			s.logger.WarnContext(ctx, "Dashboard load failed", log.FieldError, err)
		}
	}
	return store, store.Snapshot()
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			"error_type", log.ErrorTypeInternal)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, snap := s.load(r.Context(), true)
	s.render(w, r, "index.html", newDashboardView(auth.FromContext(r.Context()), snap))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	_, snap := s.load(r.Context(), false)
	s.render(w, r, "breakdown", newDashboardView(auth.FromContext(r.Context()), snap))
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	_, snap := s.load(r.Context(), false)
	s.render(w, r, "expenses", newDashboardView(auth.FromContext(r.Context()), snap))
}

// handleRetry reloads after a failed load and re-renders the breakdown.
// The list refreshes itself on the reloaded event.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	_, snap := s.load(r.Context(), true)
	w.Header().Set("HX-Trigger", `{"`+EventExpensesReloaded+`":{}}`)
	s.render(w, r, "breakdown", newDashboardView(auth.FromContext(r.Context()), snap))
}

// handleAdvicePanel asks the advice provider about the caller's current
// records. Any failure shows the fallback message instead.
func (s *Server) handleAdvicePanel(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	_, snap := s.load(r.Context(), false)
	view := newDashboardView(id, snap)

	switch {
	case len(snap.Records) == 0:
		view.Advice = advice.NoExpensesMessage
	case s.deps.Advice == nil:
		view.Advice = advice.FallbackMessage
	default:
		text, err := s.deps.Advice.Advice(r.Context(), id.Token, snap.Records)
		if err != nil {
			s.logger.WarnContext(r.Context(), "Advice unavailable",
				log.FieldOwnerID, id.UserID,
				log.FieldError, err)
			text = advice.FallbackMessage
		}
		view.Advice = text
	}
	s.render(w, r, "advice", view)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := auth.FromContext(r.Context()); id.Authenticated {
		s.deps.Sessions.End(id.UserID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleBudgetAdvice is the advice endpoint the advice client calls.
func (s *Server) handleBudgetAdvice(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "advice generation is not configured")
		return
	}

	var req advice.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i, rec := range req.Expenses {
		if err := rec.Validate(); err != nil {
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("expense %d: %v", i, err))
			return
		}
	}

	id := auth.FromContext(r.Context())
	text, err := s.deps.Generator.Generate(r.Context(), id.UserID, req.Expenses)
	if err != nil {
		log.NewStructuredLogger(s.logger).LogError(r.Context(), "Failed to generate advice", err,
			log.ComponentAdvice, log.OpAdvice,
			log.NewFields().WithOwner(id.UserID))
		WriteJSONError(w, http.StatusBadGateway, "Failed to get budget advice")
		return
	}
	WriteJSON(w, http.StatusOK, advice.Response{Advice: text})
}
