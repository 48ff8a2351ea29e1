package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/httputil"
	"github.com/certflow/certportal-backend/pkg/logger"
)

// CriteriaHandler handles scoring criteria and level band endpoints
type CriteriaHandler struct {
	service *service.CriteriaService
	logger  *logger.Logger
}

// NewCriteriaHandler creates a new criteria handler
func NewCriteriaHandler(svc *service.CriteriaService, log *logger.Logger) *CriteriaHandler {
	return &CriteriaHandler{
		service: svc,
		logger:  log,
	}
}

// List lists all criteria
func (h *CriteriaHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.service.ListCriteria(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, criteria)
}

// Get gets a criterion by ID
func (h *CriteriaHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCriterion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}

// Create creates a new criterion
func (h *CriteriaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CriterionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c := &domain.Criterion{
		Name:        req.Name,
		Category:    domain.Category(req.Category),
		Weight:      req.Weight,
		Description: req.Description,
		Active:      req.Active,
	}
	if err := h.service.SaveCriterion(r.Context(), c); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, c)
}

// Update updates a criterion
func (h *CriteriaHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CriterionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	c := &domain.Criterion{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Category:    domain.Category(req.Category),
		Weight:      req.Weight,
		Description: req.Description,
		Active:      req.Active,
	}
	if err := h.service.SaveCriterion(r.Context(), c); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}

// Delete deletes a criterion
func (h *CriteriaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveCriterion(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Balance reports how the active weights relate to 100
func (h *CriteriaHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.WeightBalance(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, balance)
}

// ListLevelBands lists the level bands
func (h *CriteriaHandler) ListLevelBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.service.ListLevelBands(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bands)
}

// LevelForYears resolves the level band covering the given experience years
func (h *CriteriaHandler) LevelForYears(w http.ResponseWriter, r *http.Request) {
	years, err := strconv.ParseFloat(r.URL.Query().Get("years"), 64)
	if err != nil {
		httputil.Error(w, errors.BadRequest("years must be a number"))
		return
	}

	band, err := h.service.LevelForYears(r.Context(), years)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, band)
}

// CreateLevelBand creates a new level band
func (h *CriteriaHandler) CreateLevelBand(w http.ResponseWriter, r *http.Request) {
	var req LevelBandRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	band := &domain.LevelBand{
		Name:        req.Name,
		MinYears:    req.MinYears,
		MaxYears:    req.MaxYears,
		Description: req.Description,
	}
	if err := h.service.SaveLevelBand(r.Context(), band); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, band)
}

// UpdateLevelBand updates a level band
func (h *CriteriaHandler) UpdateLevelBand(w http.ResponseWriter, r *http.Request) {
	var req LevelBandRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	band := &domain.LevelBand{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		MinYears:    req.MinYears,
		MaxYears:    req.MaxYears,
		Description: req.Description,
	}
	if err := h.service.SaveLevelBand(r.Context(), band); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, band)
}

// DeleteLevelBand deletes a level band
func (h *CriteriaHandler) DeleteLevelBand(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveLevelBand(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
