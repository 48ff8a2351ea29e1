package handler

import "github.com/certflow/certportal-backend/internal/registry/domain"

// CreateApplicationRequest opens a draft application
type CreateApplicationRequest struct {
	Profile *domain.ApplicantProfile `json:"profile" validate:"required"`
}

// EditProfileRequest replaces the profile snapshot. Reason is mandatory once
// the application has been submitted.
type EditProfileRequest struct {
	Profile *domain.ApplicantProfile `json:"profile" validate:"required"`
	Reason  string                   `json:"reason"`
}

// ReasonRequest carries the mandatory reason for reject, suspend and revoke
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SubmitDocumentRequest appends a document version to the ledger
type SubmitDocumentRequest struct {
	ApplicationID string `json:"application_id" validate:"required,uuid"`
	Type          string `json:"type" validate:"required,oneof=id degree experience training cv other"`
	Name          string `json:"name" validate:"required"`
	Required      bool   `json:"required"`
}

// RejectDocumentRequest records a document rejection
type RejectDocumentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PayInvoiceRequest records payment of an invoice
type PayInvoiceRequest struct {
	Method string `json:"method"`
}

// CriterionRequest creates or updates a scoring criterion
type CriterionRequest struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required,oneof=education experience training research projects"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
	Description string  `json:"description"`
	Active      bool    `json:"active"`
}

// LevelBandRequest creates or updates a level band
type LevelBandRequest struct {
	Name        string `json:"name" validate:"required"`
	MinYears    int    `json:"min_years" validate:"gte=0"`
	MaxYears    *int   `json:"max_years"`
	Description string `json:"description"`
}
