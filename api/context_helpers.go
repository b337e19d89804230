package api

import (
	"context"
	"strings"

	"InvoiceDesk/api/auth"
)

// GetUserIDFromCtx returns the caller identity stuffed in by the session
// middleware, or empty when the request bypassed it.
func GetUserIDFromCtx(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}

func GetSessionFromCtx(ctx context.Context) *auth.UserSession {
	if session, ok := ctx.Value("session").(*auth.UserSession); ok {
		return session
	}
	return nil
}

// RequestedByFromCtx resolves a display name for audit fields: the session
// in context first, then the active session registry, then empty.
func RequestedByFromCtx(ctx context.Context, userID string) string {
	if s := GetSessionFromCtx(ctx); s != nil {
		if strings.TrimSpace(s.Name) != "" {
			return s.Name
		}
		if strings.TrimSpace(s.UserID) != "" {
			return s.UserID
		}
	}
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Name
		}
	}
	return ""
}
