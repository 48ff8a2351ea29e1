package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/certflow/certportal-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be a recognised lifecycle status",
		})

	case strings.Contains(constraint, "weight_range"):
		return errors.Validation(map[string]string{
			"weight": "must be between 0 and 100",
		})

	case strings.Contains(constraint, "degree_valid"):
		return errors.Validation(map[string]string{
			"degree": "must be one of: bachelor, master, phd, diploma, certificate",
		})

	case strings.Contains(constraint, "years_non_negative"):
		return errors.Validation(map[string]string{
			"min_years": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "national_id"):
		return "an application with this national ID already exists"
	case strings.Contains(constraint, "criteria_name"):
		return "a criterion with this name already exists"
	case strings.Contains(constraint, "invoice_number"):
		return "an invoice with this number already exists"
	default:
		return "a record with these values already exists"
	}
}
