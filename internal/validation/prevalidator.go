package validation

import (
	"fmt"
	"strings"

	"InvoiceDesk/api/auth"
)

// ValidationResult carries the identity facts a request handler needs once
// the session middleware has vetted the caller.
type ValidationResult struct {
	UserID      string
	SessionID   string
	DisplayName string
	Email       string
}

// PreValidateRequest checks the caller's user_id against the active
// session registry. Every request into the invoice and dash services runs
// through this before any handler logic.
func PreValidateRequest(userID string) (*ValidationResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	s := auth.SessionForUser(userID)
	if s == nil || !s.IsLoggedIn {
		return nil, fmt.Errorf("no active session for user %s", userID)
	}

	return &ValidationResult{
		UserID:      s.UserID,
		SessionID:   s.SessionID,
		DisplayName: s.Name,
		Email:       s.Email,
	}, nil
}
