package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/httputil"
	"github.com/certflow/certportal-backend/pkg/logger"
)

// ApplicationHandler handles application workflow endpoints
type ApplicationHandler struct {
	workflow *service.WorkflowService
	logger   *logger.Logger
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(workflow *service.WorkflowService, log *logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		workflow: workflow,
		logger:   log,
	}
}

// Create opens a draft application
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateApplicationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	app, err := h.workflow.CreateDraft(r.Context(), req.Profile)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, app)
}

// Get gets an application by ID
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.workflow.GetApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, app)
}

// List lists applications with filters
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	params := repository.ApplicationListParams{Page: page, PerPage: perPage}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.Status(v)
		params.Status = &status
	}
	if v := r.URL.Query().Get("applicant_id"); v != "" {
		params.ApplicantID = &v
	}
	if v := r.URL.Query().Get("reviewer_id"); v != "" {
		params.ReviewerID = &v
	}

	apps, total, err := h.workflow.ListApplications(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, apps, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Submit moves a draft into the review queue
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Submit)
}

// Claim assigns the application to the acting reviewer
func (h *ApplicationHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Claim)
}

// Approve approves an application under review
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Approve)
}

// Reject rejects an application under review
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transitionWithReason(w, r, h.workflow.Reject)
}

// Activate activates an approved application
func (h *ApplicationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Activate)
}

// Suspend suspends an active certification
func (h *ApplicationHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.transitionWithReason(w, r, h.workflow.Suspend)
}

// Resume lifts a suspension
func (h *ApplicationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Resume)
}

// Revoke permanently withdraws a certification
func (h *ApplicationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.transitionWithReason(w, r, h.workflow.Revoke)
}

// RequestRenewal opens a renewal
func (h *ApplicationHandler) RequestRenewal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.RequestRenewal)
}

// CompleteRenewal closes a pending renewal
func (h *ApplicationHandler) CompleteRenewal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.CompleteRenewal)
}

// EditProfile replaces the application's profile snapshot
func (h *ApplicationHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	var req EditProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	app, err := h.workflow.EditProfile(r.Context(), chi.URLParam(r, "id"), req.Profile, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, app)
}

// Audit returns the application's audit trail
func (h *ApplicationHandler) Audit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.workflow.AuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// Score returns a fresh score breakdown against the current criteria
func (h *ApplicationHandler) Score(w http.ResponseWriter, r *http.Request) {
	result, err := h.workflow.ScoreApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (h *ApplicationHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*domain.Application, error)) {
	app, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) transitionWithReason(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, reason string) (*domain.Application, error)) {
	var req ReasonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	app, err := op(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, app)
}
