package attachments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/recordstore"
)

// AttachHandler accepts a multipart upload (file, invoice_id) and attaches
// the PDF to the caller's invoice.
func AttachHandler(manager *Manager) http.Handler {
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

		r.Body = http.MaxBytesReader(w, r.Body, config.MaxPDFBytes)
		if err := r.ParseMultipartForm(config.MaxPDFBytes); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileTooLarge)
			return
		}
		invoiceID := r.FormValue("invoice_id")
		if invoiceID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvoiceIDRequired)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileUploadFailed)
			return
		}

		inv, err := manager.Attach(r.Context(), userID, invoiceID, header.Filename,
			header.Header.Get(constants.ContentTypeText), data)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotPDF):
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrNotPDF)
			case errors.Is(err, recordstore.ErrNotFound):
				api.RespondWithError(w, http.StatusNotFound, constants.ErrInvoiceNotFound)
			default:
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		api.RespondWithPayload(w, true, "", inv)
	})
}

type detachRequest struct {
	UserID    string `json:"user_id"`
	InvoiceID string `json:"invoice_id"`
}

// DetachHandler clears an invoice's PDF fields.
func DetachHandler(manager *Manager) http.Handler {
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

		var req detachRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.InvoiceID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvoiceIDRequired)
			return
		}

		inv, err := manager.Detach(r.Context(), userID, req.InvoiceID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoPDFAttached):
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoPDFAttached)
			case errors.Is(err, recordstore.ErrNotFound):
				api.RespondWithError(w, http.StatusNotFound, constants.ErrInvoiceNotFound)
			default:
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		api.RespondWithPayload(w, true, "", inv)
	})
}

type viewURLRequest struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"`
}

// ViewURLHandler returns a time-limited signed link for a stored PDF.
func ViewURLHandler(manager *Manager) http.Handler {
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

		var req viewURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Path == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrPDFPathRequired)
			return
		}

		url, err := manager.ViewURL(r.Context(), userID, req.Path)
		if err != nil {
			if errors.Is(err, ErrPathNotOwned) {
				api.RespondWithError(w, http.StatusForbidden, constants.ErrUnauthorized)
				return
			}
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"url":                url,
			"expires_in_seconds": int(config.PDFViewURLTTL.Seconds()),
		})
	})
}
