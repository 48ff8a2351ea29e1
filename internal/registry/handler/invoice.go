package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/httputil"
	"github.com/certflow/certportal-backend/pkg/logger"
)

// InvoiceHandler handles billing ledger endpoints
type InvoiceHandler struct {
	service *service.BillingService
	logger  *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(svc *service.BillingService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: svc,
		logger:  log,
	}
}

// List lists invoices with filters
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	params := repository.InvoiceListParams{Page: page, PerPage: perPage}
	if v := r.URL.Query().Get("application_id"); v != "" {
		params.ApplicationID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.InvoiceStatus(v)
		params.Status = &status
	}

	invoices, total, err := h.service.ListInvoices(r.Context(), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, invoices, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets an invoice by ID
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, inv)
}

// Pay records payment of an invoice
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PayInvoiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	inv, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.Method)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, inv)
}

// Cancel voids an unpaid invoice
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.CancelInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, inv)
}
