package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"InvoiceDesk/api/auth"
)

// ExtractUserID parses the request ONCE and extracts user_id, restoring
// the body so downstream handlers can read it again. Lookup order: query
// string, JSON body, url-encoded form, multipart form.
func ExtractUserID(r *http.Request) (string, error) {
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		return userID, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	defer r.Body.Close()

	// Try JSON first (we already have the bytes)
	var reqMap map[string]interface{}
	if err := json.Unmarshal(body, &reqMap); err == nil {
		if userID, ok := reqMap["user_id"].(string); ok && userID != "" {
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			return userID, nil
		}
	}

	// Restore body so form parsing can read it
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	ct := r.Header.Get("Content-Type")
	if strings.Contains(strings.ToLower(ct), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			if userID := r.FormValue("user_id"); userID != "" {
				r.Body = io.NopCloser(bytes.NewBuffer(body))
				return userID, nil
			}
		}
	} else {
		if err := r.ParseForm(); err == nil {
			if userID := r.FormValue("user_id"); userID != "" {
				r.Body = io.NopCloser(bytes.NewBuffer(body))
				return userID, nil
			}
		}
	}

	// Ensure body is available for caller
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	return "", fmt.Errorf("user_id not found in request")
}

// ValidateSession returns the active session for userID, or nil when the
// user has no live login.
func ValidateSession(userID string) *auth.UserSession {
	sessions := auth.GetActiveSessions()
	for _, s := range sessions {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}
