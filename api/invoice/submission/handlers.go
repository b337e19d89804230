package submission

import (
	"encoding/json"
	"fmt"
	"net/http"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/internal/notification"
	"InvoiceDesk/internal/opstate"
	"InvoiceDesk/internal/recordstore"
)

const opSubmit = "submission"

type submitRequest struct {
	UserID  string `json:"user_id"`
	Confirm bool   `json:"confirm"`
}

// SubmitHandler moves every valid invoice in the caller's workspace to
// permanent storage. The gate runs up front: each valid invoice must carry
// a PDF or nothing is attempted. One submission per user at a time.
func SubmitHandler(tx *Transaction, stores recordstore.Stores, ops *opstate.Registry) http.Handler {
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

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !req.Confirm {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrConfirmRequired)
			return
		}

		if !ops.Begin(userID, opSubmit) {
			api.RespondWithError(w, http.StatusConflict, constants.ErrOperationInFlight)
			return
		}
		failed := true
		defer func() { ops.Finish(userID, opSubmit, failed) }()

		valid, err := stores.Invoices.ListInvoices(r.Context(), userID, recordstore.InvoiceFilter{OnlyValid: true})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to list invoices: "+err.Error())
			return
		}
		if len(valid) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoValidInvoices)
			return
		}
		for i := range valid {
			if !valid[i].HasPDF() {
				api.RespondWithError(w, http.StatusConflict, constants.ErrSubmitNeedsPDF)
				return
			}
		}

		report := tx.Submit(r.Context(), userID, api.RequestedByFromCtx(r.Context(), userID), valid)
		if report.Outcome == OutcomeFailed {
			api.RespondWithStatus(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   report.Message,
				"rows":    report,
			})
			return
		}
		failed = false
		notification.Push(userID, notification.TypeSubmission,
			fmt.Sprintf("%d of %d invoices submitted", report.Submitted, report.Attempted))
		api.RespondWithPayload(w, true, "", report)
	})
}
