package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/httputil"
	"github.com/certflow/certportal-backend/pkg/logger"
)

// DocumentHandler handles document verification ledger endpoints
type DocumentHandler struct {
	service *service.DocumentService
	logger  *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(svc *service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: svc,
		logger:  log,
	}
}

// Submit appends a new document version to an application's ledger
func (h *DocumentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	doc, err := h.service.SubmitDocument(r.Context(), req.ApplicationID, domain.DocumentType(req.Type), req.Name, req.Required)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, doc)
}

// ListByApplication lists every document version for an application
func (h *DocumentHandler) ListByApplication(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, docs)
}

// Verify marks a document version verified
func (h *DocumentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.VerifyDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, doc)
}

// Reject marks a document version rejected
func (h *DocumentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	doc, err := h.service.RejectDocument(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, doc)
}
