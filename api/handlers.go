/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes leave.Service via REST. Handlers parse the request, delegate to
  the service and render the envelope. No leave rule lives here.

ENDPOINTS:
  Staff leave:
    GET    /api/staff/{id}/leaves              List (status, leaveType, search, startDate, endDate, page, limit)
    POST   /api/staff/{id}/leaves              Apply for leave
    GET    /api/staff/{id}/leaves/summary      Per-category totals (startDate+endDate or month+year)
    GET    /api/staff/{id}/entitlement         Calculator output (leaveType, date)

  Decisions:
    PATCH  /api/leaves/{id}/status             Approve or reject
    POST   /api/leaves/{id}/approve            Shortcut
    POST   /api/leaves/{id}/reject             Shortcut
    DELETE /api/leaves/{id}                    Delete, reverting attendance
    POST   /api/leaves/{id}/attendance/sync    Re-apply an approved leave

  Admin:
    POST   /api/staff, /api/companies, /api/templates

ERROR HANDLING:
  - 400: Validation errors and policy violations (details carry the numbers)
  - 404: Staff or leave not found
  - 500: Internal errors (logged, generic message)

SECURITY NOTE:
  No authentication. The caller is trusted to act for the staff id in the
  path and to supply the approver id.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/i18n"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs from a backend: the leave contracts plus a
// way to wipe data for scenarios.
type Store interface {
	leave.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.Service
	Store   Store
	Logger  *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil logger uses slog.Default().
func NewHandler(svc *leave.Service, store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Store: store, Logger: logger}
}

// =============================================================================
// STAFF LEAVE HANDLERS
// =============================================================================

// ListLeaves returns one page of a staff member's requests.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Service.List(r.Context(), leave.ListQuery{
		StaffID:   chi.URLParam(r, "id"),
		Status:    q.Get("status"),
		Category:  q.Get("leaveType"),
		Search:    q.Get("search"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveListDTO(res))
}

// CreateLeave applies for leave on behalf of the staff member in the path.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var body CreateLeaveRequest
	if !h.decode(w, r, &body) {
		return
	}

	req, err := h.Service.Create(r.Context(), leave.CreateInput{
		StaffID:   chi.URLParam(r, "id"),
		Category:  body.LeaveType,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Reason:    body.Reason,
		Session:   body.Session,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(req))
}

// GetSummary returns approved days per category.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.Service.Summary(r.Context(), leave.SummaryQuery{
		StaffID:   chi.URLParam(r, "id"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Month:     queryInt(r, "month"),
		Year:      queryInt(r, "year"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetEntitlement returns the calculator output for one category.
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ent, err := h.Service.Entitlement(r.Context(), chi.URLParam(r, "id"), q.Get("leaveType"), q.Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(ent))
}

// =============================================================================
// DECISION HANDLERS
// =============================================================================

// UpdateStatus approves or rejects a request.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.decide(w, r, body)
}

// ApproveLeave is UpdateStatus with status Approved.
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusRequest
	if !h.decodeOptional(w, r, &body) {
		return
	}
	body.Status = string(leave.StatusApproved)
	h.decide(w, r, body)
}

// RejectLeave is UpdateStatus with status Rejected.
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusRequest
	if !h.decodeOptional(w, r, &body) {
		return
	}
	body.Status = string(leave.StatusRejected)
	h.decide(w, r, body)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, body UpdateStatusRequest) {
	req, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), leave.StatusInput{
		Status:          body.Status,
		ApproverID:      body.ApproverID,
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// DeleteLeave removes a request and reverts its attendance.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// SyncAttendance re-applies an approved request to attendance.
func (h *Handler) SyncAttendance(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Resync(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResultDTO(res))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SaveStaff upserts a staff member, optionally with an inline template.
func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var body StaffRequest
	if !h.decode(w, r, &body) {
		return
	}

	staff := &leave.Staff{
		ID:         body.ID,
		CompanyID:  body.CompanyID,
		Name:       body.Name,
		TemplateID: body.TemplateID,
		ShiftName:  body.ShiftName,
	}
	if len(body.Template) > 0 && string(body.Template) != "null" {
		tmpl, err := factory.ParseTemplate(body.Template)
		if err != nil {
			h.writeTemplateError(w, r, err)
			return
		}
		staff.Template = tmpl
	}

	if err := h.Store.SaveStaff(r.Context(), staff); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffDTO(staff))
}

// SaveCompany upserts a company with its shifts.
func (h *Handler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	var body CompanyDTO
	if !h.decode(w, r, &body) {
		return
	}
	company := body.toCompany()
	if err := h.Store.SaveCompany(r.Context(), company); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(company))
}

// SaveTemplate stores template JSON in any supported shape.
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !h.decode(w, r, &raw) {
		return
	}
	tmpl, err := factory.ParseTemplate(raw)
	if err != nil {
		h.writeTemplateError(w, r, err)
		return
	}
	if err := h.Store.SaveTemplate(r.Context(), tmpl); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TemplateDTO{ID: tmpl.ID, Name: tmpl.Name, Categories: tmpl.CategoryNames()})
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.Logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: status < 400, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, e ErrorDTO) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: &e})
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var ve *generic.ValidationError
	var pv *generic.PolicyViolationError
	var nf *generic.NotFoundError
	switch {
	case errors.As(err, &pv):
		details := pv.Details
		if len(pv.AvailableCategories) > 0 {
			if details == nil {
				details = map[string]any{}
			}
			details["availableLeaveTypes"] = pv.AvailableCategories
		}
		writeFailure(w, http.StatusBadRequest, ErrorDTO{Code: pv.Code, Message: pv.Message, Details: details})
	case errors.As(err, &ve):
		writeFailure(w, http.StatusBadRequest, ErrorDTO{Code: ve.Code, Message: ve.Message})
	case errors.As(err, &nf):
		code := nf.Kind + "_not_found"
		writeFailure(w, http.StatusNotFound, ErrorDTO{Code: code, Message: i18n.T(ctx, code), Details: map[string]any{"id": nf.ID}})
	case generic.IsClientError(err):
		writeFailure(w, http.StatusBadRequest, ErrorDTO{Code: "invalid_request", Message: err.Error()})
	default:
		h.Logger.ErrorContext(ctx, "request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(ctx), "error", err)
		writeFailure(w, http.StatusInternalServerError, ErrorDTO{
			Code:    "internal_error",
			Message: err.Error(),
			Details: map[string]any{"hint": i18n.T(ctx, "internal_error")},
		})
	}
}

func (h *Handler) writeTemplateError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, factory.ErrInvalidTemplate) {
		h.writeError(w, r, err)
		return
	}
	writeFailure(w, http.StatusBadRequest, ErrorDTO{
		Code:    "invalid_template",
		Message: i18n.T(r.Context(), "invalid_template", map[string]any{"Reason": err.Error()}),
	})
}

// decode reads a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFailure(w, http.StatusBadRequest, ErrorDTO{
			Code:    "invalid_request_body",
			Message: i18n.T(r.Context(), "invalid_request_body"),
		})
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be empty.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return h.decode(w, r, v)
}

// queryInt parses an integer query parameter; absent or malformed is 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
