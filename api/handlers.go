/*
handlers.go - HTTP API handlers for the worklog engine

PURPOSE:
  Exposes the timer & ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/register            Create an account
    POST   /api/auth/login               Exchange credentials for a bearer token

  Works:
    GET    /api/works                    List works (newest start date first)
    POST   /api/works                    Create work
    POST   /api/works/{id}/close         Close a work permanently

  Timer:
    POST   /api/works/{id}/timer/start   Start (idempotent) a session
    POST   /api/works/{id}/timer/stop    Stop (idempotent) the open session
    GET    /api/works/{id}/timer         Timer projection
    GET    /api/works/{id}/entries       Recent entries, newest first

  Reports:
    GET    /api/reports/summary          Date-range totals per work

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid bearer token
  - 404: Work not found
  - 409: Work finished (timer start), email already registered
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/worklog-engine/auth"
	"github.com/warp/worklog-engine/store/sqlite"
	"github.com/warp/worklog-engine/worklog"
)

// defaultEntryLimit caps /entries responses when no limit is given.
const defaultEntryLimit = 200

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Works    *worklog.Works
	Timer    *worklog.TimerEngine
	Reporter *worklog.Reporter
	Auth     *auth.Service
}

// NewHandler wires the engine on top of the given store.
func NewHandler(store *sqlite.Store, clock worklog.Clock) *Handler {
	timer := worklog.NewTimerEngine(store, store, clock)
	return &Handler{
		Works:    worklog.NewWorks(store, timer, clock),
		Timer:    timer,
		Reporter: worklog.NewReporter(store, store),
		Auth:     auth.NewService(store, store, clock),
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates a new user account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required", nil)
		return
	}

	if _, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "Email already registered", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to log in", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
}

// =============================================================================
// WORK HANDLERS
// =============================================================================

// CreateWork creates a new work.
func (h *Handler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	startDate, err := worklog.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	endDate, err := worklog.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	work, err := h.Works.Create(r.Context(), currentUserID(r), worklog.NewWorkParams{
		Title:           req.Title,
		SprintName:      req.SprintName,
		HourlyRateCents: req.HourlyRateCents,
		Currency:        req.Currency,
		StartDate:       startDate,
		EndDate:         endDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateWorkResponse{ID: string(work.ID)})
}

// ListWorks returns the caller's works, newest start date first.
func (h *Handler) ListWorks(w http.ResponseWriter, r *http.Request) {
	works, err := h.Works.List(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list works", err)
		return
	}

	sort.SliceStable(works, func(i, j int) bool {
		return works[i].StartDate.After(works[j].StartDate)
	})

	items := make([]WorkItemDTO, len(works))
	for i, wk := range works {
		items[i] = WorkItemDTO{
			ID:              string(wk.ID),
			Title:           wk.Title,
			SprintName:      wk.SprintName,
			HourlyRateCents: wk.HourlyRateCents,
			Currency:        wk.Currency,
		}
	}
	writeJSON(w, http.StatusOK, WorksListResponse{Items: items})
}

// CloseWork marks a work FINISHED/CLOSED, settling any running session.
func (h *Handler) CloseWork(w http.ResponseWriter, r *http.Request) {
	var req CloseWorkRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors on an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	work, err := h.Works.Close(r.Context(), currentUserID(r), workID(r), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CloseWorkResponse{
		ID:           string(work.ID),
		ClosedReason: work.ClosedReason,
	}
	if work.ClosedAt != nil {
		resp.ClosedAt = work.ClosedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// TIMER HANDLERS
// =============================================================================

// StartTimer opens a session for a work. Starting twice is a no-op that
// reports the existing session.
func (h *Handler) StartTimer(w http.ResponseWriter, r *http.Request) {
	result, err := h.Timer.Start(r.Context(), currentUserID(r), workID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TimerStartResponse{
		Status:    string(result.Status),
		EntryID:   string(result.Entry.ID),
		StartedAt: result.Entry.StartedAt.UTC().Format(time.RFC3339),
	})
}

// StopTimer closes the open session for a work, if any.
func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	result, err := h.Timer.Stop(r.Context(), currentUserID(r), workID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := TimerStopResponse{Status: string(result.Status)}
	if result.Entry != nil {
		resp.EntryID = string(result.Entry.ID)
		if result.Entry.EndedAt != nil {
			resp.EndedAt = result.Entry.EndedAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTimerState returns the timer projection for a work.
func (h *Handler) GetTimerState(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	id := workID(r)

	work, err := h.Works.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	state, err := h.Timer.CurrentState(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := TimerStateResponse{
		Running:            state.Running,
		TotalClosedSeconds: state.TotalClosedSeconds,
		IsFinished:         state.IsFinished,
		BlockedReason:      string(state.BlockedReason),
		EndDate:            work.EndDate.String(),
	}
	if state.StartedAt != nil {
		resp.StartedAt = state.StartedAt.UTC().Format(time.RFC3339)
	}
	if work.ClosedAt != nil {
		resp.ClosedAt = work.ClosedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEntries returns a work's entries, newest first, capped at ?limit=N.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := defaultEntryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Timer.RecentEntries(r.Context(), currentUserID(r), workID(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]TimeEntryDTO, len(entries))
	for i, e := range entries {
		items[i] = TimeEntryDTO{
			ID:              string(e.ID),
			StartedAt:       e.StartedAt.UTC().Format(time.RFC3339),
			DurationSeconds: e.DurationSeconds,
			Note:            e.Note,
		}
		if e.EndedAt != nil {
			items[i].EndedAt = e.EndedAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Items: items})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetSummary aggregates settled time and earnings over ?date_from=&date_to=.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	from, err := worklog.ParseDate(r.URL.Query().Get("date_from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from (use YYYY-MM-DD)", err)
		return
	}
	to, err := worklog.ParseDate(r.URL.Query().Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Reporter.Summarize(r.Context(), currentUserID(r), worklog.DateRange{From: from, To: to})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := SummaryResponse{
		From:             summary.Range.From.String(),
		To:               summary.Range.To.String(),
		TotalSeconds:     summary.TotalSeconds,
		TotalEarnedCents: summary.TotalEarnedCents,
		Currency:         summary.Currency,
		ByWork:           make([]WorkSummaryDTO, len(summary.ByWork)),
		ByCurrency:       make([]CurrencySubtotalDTO, len(summary.ByCurrency)),
	}
	for i, ws := range summary.ByWork {
		resp.ByWork[i] = WorkSummaryDTO{
			WorkID:           string(ws.WorkID),
			Title:            ws.Title,
			SprintName:       ws.SprintName,
			TotalSeconds:     ws.TotalSeconds,
			TotalEarnedCents: ws.TotalEarnedCents,
			Currency:         ws.Currency,
		}
	}
	for i, sub := range summary.ByCurrency {
		resp.ByCurrency[i] = CurrencySubtotalDTO{
			Currency:         sub.Currency,
			TotalSeconds:     sub.TotalSeconds,
			TotalEarnedCents: sub.TotalEarnedCents,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func workID(r *http.Request) worklog.WorkID {
	return worklog.WorkID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var finished *worklog.WorkFinishedError
	var invalid *worklog.ValidationError

	switch {
	case worklog.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Work not found", nil)
	case errors.As(err, &finished):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:  "Work is finished",
			Reason: string(finished.Reason),
		})
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error(), nil)
	case errors.Is(err, worklog.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "date_from must not be after date_to", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
