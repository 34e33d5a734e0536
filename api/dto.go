/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response types returned to clients
  - *DTO:      Nested items inside responses

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// AUTH
// =============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// =============================================================================
// WORKS
// =============================================================================

type CreateWorkRequest struct {
	Title           string `json:"title"`
	SprintName      string `json:"sprint_name"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
	Currency        string `json:"currency,omitempty"`
}

type CreateWorkResponse struct {
	ID string `json:"id"`
}

type WorkItemDTO struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	SprintName      string `json:"sprint_name"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
	Currency        string `json:"currency"`
}

type WorksListResponse struct {
	Items []WorkItemDTO `json:"items"`
}

type CloseWorkRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CloseWorkResponse struct {
	ID           string `json:"id"`
	ClosedAt     string `json:"closed_at"`
	ClosedReason string `json:"closed_reason,omitempty"`
}

// =============================================================================
// TIMER
// =============================================================================

type TimerStartResponse struct {
	Status    string `json:"status"` // "started" | "already_running"
	EntryID   string `json:"entry_id"`
	StartedAt string `json:"started_at"`
}

type TimerStopResponse struct {
	Status  string `json:"status"` // "stopped" | "not_running"
	EntryID string `json:"entry_id,omitempty"`
	EndedAt string `json:"ended_at,omitempty"`
}

type TimerStateResponse struct {
	Running            bool   `json:"running"`
	StartedAt          string `json:"started_at,omitempty"`
	TotalClosedSeconds int64  `json:"total_closed_seconds"`
	IsFinished         bool   `json:"is_finished"`
	BlockedReason      string `json:"blocked_reason,omitempty"` // "EXPIRED" | "CLOSED"
	EndDate            string `json:"end_date,omitempty"`
	ClosedAt           string `json:"closed_at,omitempty"`
}

type TimeEntryDTO struct {
	ID              string `json:"id"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	Note            string `json:"note,omitempty"`
}

type EntriesResponse struct {
	Items []TimeEntryDTO `json:"items"`
}

// =============================================================================
// REPORTS
// =============================================================================

type WorkSummaryDTO struct {
	WorkID           string `json:"work_id"`
	Title            string `json:"title"`
	SprintName       string `json:"sprint_name"`
	TotalSeconds     int64  `json:"total_seconds"`
	TotalEarnedCents int64  `json:"total_earned_cents"`
	Currency         string `json:"currency"`
}

type CurrencySubtotalDTO struct {
	Currency         string `json:"currency"`
	TotalSeconds     int64  `json:"total_seconds"`
	TotalEarnedCents int64  `json:"total_earned_cents"`
}

type SummaryResponse struct {
	From             string                `json:"from"`
	To               string                `json:"to"`
	TotalSeconds     int64                 `json:"total_seconds"`
	TotalEarnedCents int64                 `json:"total_earned_cents"`
	Currency         string                `json:"currency,omitempty"`
	ByWork           []WorkSummaryDTO      `json:"by_work"`
	ByCurrency       []CurrencySubtotalDTO `json:"by_currency"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	// Reason carries the lifecycle verdict (EXPIRED or CLOSED) when a
	// timer start is rejected, so clients can render a precise message.
	Reason string `json:"reason,omitempty"`
}
