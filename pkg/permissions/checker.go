// Package permissions provides utilities for checking capability strings
// against required capabilities with support for wildcards.
//
// Capability Format:
//   - "*" - Full access (all capabilities)
//   - "resource.*" - All actions on a resource (e.g., "applications.*")
//   - "resource.action" - Specific action (e.g., "applications.review")
package permissions

import (
	"strings"
)

// Capabilities required by the registry workflows. Each workflow transition
// declares one of these and it is checked once at the service boundary.
const (
	CapApplicationSubmit  = "applications.submit"
	CapApplicationReview  = "applications.review"
	CapApplicationDecide  = "applications.decide"
	CapApplicationEdit    = "applications.edit"
	CapApplicationSuspend = "applications.suspend"
	CapApplicationRevoke  = "applications.revoke"
	CapApplicationRenew   = "applications.renew"
	CapDocumentSubmit     = "documents.submit"
	CapDocumentVerify     = "documents.verify"
	CapInvoiceManage      = "invoices.manage"
	CapCriteriaManage     = "criteria.manage"
)

// HasPermission checks if the actor's capabilities include the required one.
// Supports wildcard matching:
//   - "*" matches everything
//   - "applications.*" matches "applications.submit", "applications.review", etc.
//   - Exact match for specific capabilities
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true // No capability required
	}

	for _, p := range userPerms {
		if p == "*" {
			return true // Full admin access
		}
		if p == required {
			return true // Exact match
		}
		// Check wildcard patterns like "applications.*"
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the actor has any of the required capabilities.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the actor has all of the required capabilities.
func HasAllPermissions(userPerms []string, required []string) bool {
	for _, req := range required {
		if !HasPermission(userPerms, req) {
			return false
		}
	}
	return true
}

// MergePermissions merges multiple capability sets, removing duplicates.
func MergePermissions(sets ...[]string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, set := range sets {
		for _, p := range set {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}

	return result
}

// RemovePermissions removes specific capabilities from a set.
func RemovePermissions(perms []string, toRemove []string) []string {
	removeSet := make(map[string]bool)
	for _, p := range toRemove {
		removeSet[p] = true
	}

	var result []string
	for _, p := range perms {
		if !removeSet[p] {
			result = append(result, p)
		}
	}

	return result
}

// RolePermissions maps each registry role to its default capability set.
// Token claims may carry overrides; these are the fallbacks applied when a
// token names only a role.
var RolePermissions = map[string][]string{
	"applicant": {
		CapApplicationSubmit,
		CapApplicationRenew,
		CapDocumentSubmit,
	},
	"reviewer": {
		CapApplicationReview,
		CapApplicationDecide,
		CapDocumentVerify,
	},
	"registrar": {
		CapApplicationReview,
		CapApplicationDecide,
		CapApplicationEdit,
		CapApplicationRenew,
		CapDocumentSubmit,
		CapDocumentVerify,
		CapInvoiceManage,
	},
	"admin": {
		"applications.*",
		"documents.*",
		"invoices.*",
		CapCriteriaManage,
	},
	"system-admin": {
		"*",
	},
}

// ForRole returns the default capability set for a role. Unknown roles get
// no capabilities.
func ForRole(role string) []string {
	perms, ok := RolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// IsValidPermission checks if a capability string is well formed.
// Allows wildcards and any capability that follows the resource.action pattern.
func IsValidPermission(perm string) bool {
	if perm == "*" {
		return true
	}
	parts := strings.Split(perm, ".")
	return len(parts) >= 2
}
