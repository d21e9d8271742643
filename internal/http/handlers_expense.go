package http

import (
	"errors"
	"html/template"
	"net/http"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
)

// handleCreateExpense handles the HTMX add-expense form.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse form error", log.FieldError, err, log.FieldPath, r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	if !auth.FromContext(r.Context()).Authenticated {
		ErrorResponse(http.StatusUnauthorized, services.MsgAddUnauth).Write(w)
		return
	}

	in, err := ParseNewExpense(parser)
	if err != nil {
		UnprocessableEntityError(ValidationMessage(err)).Write(w)
		return
	}

	store := s.deps.Sessions.Current(r.Context())
	id, err := store.Append(r.Context(), in)
	if id == "" {
		s.writeAppendError(w, r, err)
		return
	}
	if err != nil {
		// Stored, but the reload failed; the breakdown shows the load error.
		s.logger.WarnContext(r.Context(), "Reload after add failed", log.FieldExpenseID, id, log.FieldError, err)
	}

	NewHTMXResponse().
		TriggerExpenseCreated(id).
		TriggerFormReset().
		TriggerSuccessNotification("Expense added").
		BodyHTML(`<div class="success" role="status">Added ` +
			template.HTMLEscapeString(core.FormatAmount(in.Amount)) + ` for ` +
			template.HTMLEscapeString(string(in.Category)) + ` on ` +
			template.HTMLEscapeString(in.Date.Display()) + `</div>`).
		Write(w)
}

func (s *Server) writeAppendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		ErrorResponse(http.StatusUnauthorized, services.MsgAddUnauth).Write(w)
	case StatusFor(err) == http.StatusUnprocessableEntity:
		UnprocessableEntityError(ValidationMessage(err)).Write(w)
	default:
		ErrorResponse(http.StatusBadGateway, services.MsgAddFailed).
			TriggerErrorNotification(services.MsgAddFailed).
			Write(w)
	}
}

type expensesResponse struct {
	Status   string               `json:"status"`
	Expenses []core.ExpenseRecord `json:"expenses"`
}

type summaryResponse struct {
	Total      float64                `json:"total"`
	Categories []core.CategorySummary `json:"categories"`
}

type createdResponse struct {
	ID string `json:"id"`
}

// refreshForAPI reloads the caller's store. ok is false once an error
// response has been written.
func (s *Server) refreshForAPI(w http.ResponseWriter, r *http.Request) (services.Snapshot, bool) {
	store := s.deps.Sessions.Current(r.Context())
	err := store.Refresh(r.Context())
	snap := store.Snapshot()
	switch {
	case err == nil, errors.Is(err, services.ErrSuperseded):
		return snap, true
	case errors.Is(err, core.ErrUnauthenticated):
		WriteJSONError(w, http.StatusUnauthorized, services.MsgNotAuthenticated)
	default:
		WriteJSONError(w, StatusFor(err), services.MsgLoadFailed)
	}
	return snap, false
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.refreshForAPI(w, r)
	if !ok {
		return
	}
	records := snap.Records
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	WriteJSON(w, http.StatusOK, expensesResponse{Status: snap.Status.String(), Expenses: records})
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.refreshForAPI(w, r)
	if !ok {
		return
	}
	summaries := snap.Summaries()
	WriteJSON(w, http.StatusOK, summaryResponse{Total: core.GrandTotal(summaries), Categories: summaries})
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := ParseNewExpense(parser)
	if err != nil {
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.deps.Sessions.Current(r.Context()).Append(r.Context(), in)
	if id == "" {
		code := StatusFor(err)
		msg := services.MsgAddFailed
		if code == http.StatusUnauthorized {
			msg = services.MsgAddUnauth
		} else if code == http.StatusUnprocessableEntity {
			msg = err.Error()
		}
		WriteJSONError(w, code, msg)
		return
	}
	WriteJSON(w, http.StatusCreated, createdResponse{ID: id})
}
