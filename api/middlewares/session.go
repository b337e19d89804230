package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/internal/validation"
)

// SessionMiddleware vets every request against the active session
// registry before any handler runs. It reads the body once to find
// user_id, restores it for the handler, and stuffs the resolved identity
// into the request context under "user_id" and "session".
func SessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			userID, err := validation.ExtractUserID(r)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			session := validation.ValidateSession(userID)
			if session == nil {
				api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
				return
			}

			if _, err := validation.PreValidateRequest(userID); err != nil {
				api.RespondWithError(w, http.StatusUnauthorized, "Validation failed: "+err.Error())
				return
			}

			ctx = context.WithValue(ctx, "user_id", userID)
			ctx = context.WithValue(ctx, "session", session)

			r.Body = io.NopCloser(bytes.NewBuffer(body))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
