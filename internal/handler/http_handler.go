package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/pesio-ai/be-relocation-cases/internal/lifecycle"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/logger"
	"github.com/pesio-ai/be-relocation-cases/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	cases      *service.CaseService
	compliance *service.ComplianceService
	log        *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(cases *service.CaseService, compliance *service.ComplianceService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		cases:      cases,
		compliance: compliance,
		log:        log,
	}
}

// Register mounts every case route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/cases", h.Cases)
	mux.HandleFunc("/api/v1/cases/get", h.GetCase)
	mux.HandleFunc("/api/v1/cases/assign", h.AssignCase)
	mux.HandleFunc("/api/v1/cases/draft", h.SaveDraft)
	mux.HandleFunc("/api/v1/cases/wizard", h.Wizard)
	mux.HandleFunc("/api/v1/cases/evaluate", h.EvaluateDraft)
	mux.HandleFunc("/api/v1/cases/submit", h.SubmitCase)
	mux.HandleFunc("/api/v1/cases/open", h.OpenCase)
	mux.HandleFunc("/api/v1/cases/decision", h.DecideCase)
	mux.HandleFunc("/api/v1/cases/history", h.History)

	mux.HandleFunc("/api/v1/cases/policy", h.GetPolicy)
	mux.HandleFunc("/api/v1/cases/policy/spend", h.RecordSpend)
	mux.HandleFunc("/api/v1/cases/policy/exceptions", h.RequestException)
	mux.HandleFunc("/api/v1/cases/policy/exceptions/resolve", h.ResolveException)

	mux.HandleFunc("/api/v1/cases/compliance", h.GetCompliance)
	mux.HandleFunc("/api/v1/cases/compliance/run", h.RunCompliance)
	mux.HandleFunc("/api/v1/cases/compliance/action", h.ComplianceAction)
}

// ── Cases ─────────────────────────────────────────────────────────────────────

// Cases lists cases on GET and creates one on POST.
func (h *HTTPHandler) Cases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCases(w, r)
	case http.MethodPost:
		h.createCase(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) listCases(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	status := model.Status(r.URL.Query().Get("status"))

	cases, err := h.cases.ListCases(r.Context(), sess, status, pageSize, (page-1)*pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases":    cases,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *HTTPHandler) createCase(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		EmployeeID    string       `json:"employeeId"`
		EmployeeEmail string       `json:"employeeEmail"`
		Draft         *model.Draft `json:"draft"`
	}
	if !decode(w, r, &body) {
		return
	}

	c, err := h.cases.CreateCase(r.Context(), sess, &service.CreateCaseRequest{
		EmployeeID:    body.EmployeeID,
		EmployeeEmail: body.EmployeeEmail,
		Draft:         body.Draft,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCase handles get case HTTP requests
func (h *HTTPHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	c, err := h.cases.GetCase(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AssignCase handles assign case HTTP requests
func (h *HTTPHandler) AssignCase(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID            string `json:"id"`
		EmployeeID    string `json:"employeeId"`
		EmployeeEmail string `json:"employeeEmail"`
	}
	if !decode(w, r, &body) {
		return
	}

	c, err := h.cases.AssignCase(r.Context(), sess, &service.AssignCaseRequest{
		CaseID:        body.ID,
		EmployeeID:    body.EmployeeID,
		EmployeeEmail: body.EmployeeEmail,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SaveDraft handles draft autosave HTTP requests
func (h *HTTPHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPut) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID    string      `json:"id"`
		Draft model.Draft `json:"draft"`
	}
	if !decode(w, r, &body) {
		return
	}

	c, err := h.cases.SaveDraft(r.Context(), sess, body.ID, body.Draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Wizard resolves a wizard navigation attempt. A missing step resumes at the
// first incomplete one.
func (h *HTTPHandler) Wizard(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	step := 0
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, errors.InvalidInput("step", "must be an integer"))
			return
		}
		step = n
	}

	view, err := h.cases.WizardView(r.Context(), sess, id, step)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EvaluateDraft scores a posted draft without persisting it.
func (h *HTTPHandler) EvaluateDraft(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if _, ok := h.session(w, r); !ok {
		return
	}

	var draft model.Draft
	if !decode(w, r, &draft) {
		return
	}
	writeJSON(w, http.StatusOK, h.cases.EvaluateDraft(draft))
}

// SubmitCase handles submit HTTP requests
func (h *HTTPHandler) SubmitCase(w http.ResponseWriter, r *http.Request) {
	h.caseAction(w, r, h.cases.SubmitCase)
}

// OpenCase handles HR open-for-review HTTP requests
func (h *HTTPHandler) OpenCase(w http.ResponseWriter, r *http.Request) {
	h.caseAction(w, r, h.cases.OpenCase)
}

// DecideCase handles HR decision HTTP requests
func (h *HTTPHandler) DecideCase(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID                string   `json:"id"`
		Decision          string   `json:"decision"`
		Notes             string   `json:"notes"`
		RequestedSections []string `json:"requestedSections"`
	}
	if !decode(w, r, &body) {
		return
	}

	c, err := h.cases.DecideCase(r.Context(), sess, &service.DecisionRequest{
		CaseID:            body.ID,
		Decision:          lifecycle.Verdict(body.Decision),
		Notes:             body.Notes,
		RequestedSections: body.RequestedSections,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// History returns a case's audit trail.
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	entries, err := h.cases.History(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ── Policy ────────────────────────────────────────────────────────────────────

// GetPolicy returns coverage, exceptions and the gate verdict for a case.
func (h *HTTPHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	view, err := h.compliance.GetPolicy(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RecordSpend handles spend entry HTTP requests
func (h *HTTPHandler) RecordSpend(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Amount   int64  `json:"amount"`
		Note     string `json:"note"`
	}
	if !decode(w, r, &body) {
		return
	}

	entry, err := h.compliance.RecordSpend(r.Context(), sess, &service.RecordSpendRequest{
		CaseID:   body.ID,
		Category: body.Category,
		Amount:   body.Amount,
		Note:     body.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// RequestException handles exception request HTTP requests
func (h *HTTPHandler) RequestException(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Reason   string `json:"reason"`
	}
	if !decode(w, r, &body) {
		return
	}

	ex, err := h.compliance.RequestException(r.Context(), sess, &service.ExceptionRequestInput{
		CaseID:   body.ID,
		Category: body.Category,
		Reason:   body.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

// ResolveException handles exception approval or rejection
func (h *HTTPHandler) ResolveException(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ExceptionID string `json:"exceptionId"`
		Approve     bool   `json:"approve"`
		Note        string `json:"note"`
	}
	if !decode(w, r, &body) {
		return
	}

	ex, err := h.compliance.ResolveException(r.Context(), sess, &service.ResolveExceptionRequest{
		ExceptionID: body.ExceptionID,
		Approve:     body.Approve,
		Note:        body.Note,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// ── Compliance ────────────────────────────────────────────────────────────────

// GetCompliance returns the stored report and recorded actions.
func (h *HTTPHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	view, err := h.compliance.GetCompliance(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RunCompliance rebuilds and stores the compliance report.
func (h *HTTPHandler) RunCompliance(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &body) {
		return
	}

	report, err := h.compliance.RunCompliance(r.Context(), sess, body.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ComplianceAction records an HR action on one check.
func (h *HTTPHandler) ComplianceAction(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID         string `json:"id"`
		CheckID    string `json:"checkId"`
		ActionType string `json:"actionType"`
		Category   string `json:"category"`
		Notes      string `json:"notes"`
	}
	if !decode(w, r, &body) {
		return
	}

	action, err := h.compliance.RecordComplianceAction(r.Context(), sess, &service.ComplianceActionRequest{
		CaseID:     body.ID,
		CheckID:    body.CheckID,
		ActionType: body.ActionType,
		Category:   body.Category,
		Notes:      body.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (h *HTTPHandler) caseAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sess auth.Session, id string) (*model.Case, error)) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &body) {
		return
	}

	c, err := fn(r.Context(), sess, body.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	sess, err := auth.FromContext(r.Context())
	if err != nil {
		h.writeError(w, r, errors.New(errors.ErrCodeUnauthorized, "missing session"))
		return auth.Session{}, false
	}
	return sess, true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Case ID is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code           errors.Code `json:"code"`
	Message        string      `json:"message"`
	Field          string      `json:"field,omitempty"`
	Step           int         `json:"step,omitempty"`
	Section        string      `json:"section,omitempty"`
	BlockingChecks []string    `json:"blockingChecks,omitempty"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	body := errorBody{Code: code, Message: err.Error()}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		body.Field = appErr.Field
	}
	var blocked *lifecycle.SubmissionBlockedError
	if errors.As(err, &blocked) {
		body.Step = blocked.Step
		body.Section = blocked.Section
		body.BlockingChecks = blocked.BlockingChecks
	}

	status := httpStatus(code)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

func httpStatus(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
