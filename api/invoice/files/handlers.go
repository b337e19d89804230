package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/internal/notification"
	"InvoiceDesk/internal/opstate"
)

// ListFilesHandler returns the user's uploaded files from the cache.
func ListFilesHandler(cache *Cache) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		userID := api.GetUserIDFromCtx(r.Context())
		if userID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
			return
		}

		files, err := cache.List(r.Context(), userID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to list uploaded files: "+err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", files)
	})
}

type deleteFileRequest struct {
	UserID     string `json:"user_id"`
	SourcePath string `json:"source_path"`
	Confirm    bool   `json:"confirm"`
}

// DeleteFileHandler removes an uploaded file and its derived records. The
// request must carry confirm=true; there is no undo. One deletion per
// file at a time; different files may delete concurrently.
func DeleteFileHandler(coordinator *Coordinator, ops *opstate.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		userID := api.GetUserIDFromCtx(r.Context())
		if userID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
			return
		}

		var req deleteFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SourcePath == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrSourcePathRequired)
			return
		}
		if !req.Confirm {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrConfirmRequired)
			return
		}

		op := "delete:" + req.SourcePath
		if !ops.Begin(userID, op) {
			api.RespondWithError(w, http.StatusConflict, constants.ErrOperationInFlight)
			return
		}
		failed := true
		defer func() { ops.Finish(userID, op, failed) }()

		result, err := coordinator.DeleteFile(r.Context(), userID, req.SourcePath)
		if err != nil {
			var orphan *OrphanRiskError
			if errors.As(err, &orphan) {
				api.RespondWithError(w, http.StatusConflict, orphan.Error())
				return
			}
			if errors.Is(err, ErrPathNotOwned) {
				api.RespondWithError(w, http.StatusForbidden, constants.ErrUnauthorized)
				return
			}
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		failed = false
		notification.Push(userID, notification.TypeDelete,
			fmt.Sprintf("%s removed: %d jobs and %d invoices", req.SourcePath, result.JobsDeleted, result.InvoicesDeleted))
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"message":          fmt.Sprintf("deleted %d jobs and %d invoices", result.JobsDeleted, result.InvoicesDeleted),
			"jobs_deleted":     result.JobsDeleted,
			"invoices_deleted": result.InvoicesDeleted,
		})
	})
}
