package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/internal/checksum"
	"InvoiceDesk/internal/config"
	"InvoiceDesk/internal/dashboard"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/notification"
	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/recordstore"
)

// UploadDeps carries the collaborators the upload endpoint needs.
type UploadDeps struct {
	Stores   recordstore.Stores
	Objects  objectstore.Storage
	Notifier Notifier
}

// UploadHandler accepts a multipart file, stores the original bytes, then
// runs ingestion. The response is a stream of newline-delimited JSON
// progress events followed by one result event, so callers can render a
// live progress bar from a single request.
func UploadHandler(deps UploadDeps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		ctx := r.Context()
		userID := api.GetUserIDFromCtx(ctx)
		if userID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
			return
		}

		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to read uploaded file")
			return
		}

		fileType, err := recordstore.FileTypeFromName(header.Filename)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidFileFormat)
			return
		}

		// Same bytes uploaded twice are rejected up front, before any
		// storage or record writes. A FAILED job does not block a retry.
		hash := checksum.Digest(data)
		dupes, err := deps.Stores.Jobs.ListJobs(ctx, userID, recordstore.JobFilter{FileHash: hash})
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to check for existing upload: "+err.Error())
			return
		}
		for _, dupe := range dupes {
			if dupe.Status != recordstore.JobFailed {
				api.RespondWithError(w, http.StatusConflict, constants.ErrFileAlreadyOnFile)
				return
			}
		}

		w.Header().Set(constants.ContentTypeText, "application/json; charset=utf-8")
		flusher, canStream := w.(http.Flusher)
		streamed := false
		lastPct := -1
		emit := func(pct int) {
			if pct <= lastPct {
				return
			}
			lastPct = pct
			// Mirror progress to any live dashboard connection too.
			dashboard.SendProgress(userID, pct)
			if !canStream {
				return
			}
			line, merr := json.Marshal(map[string]interface{}{"type": "progress", "percent": pct})
			if merr != nil {
				return
			}
			if _, werr := w.Write(append(line, '\n')); werr != nil {
				return
			}
			flusher.Flush()
			streamed = true
		}

		key := objectstore.BuildInvoiceFileKey(userID, header.Filename)
		contentType := header.Header.Get("Content-Type")

		// Transfer occupies the first half of the gauge, row processing
		// the second, so the combined percentage never moves backwards.
		if _, err := deps.Objects.Upload(ctx, key, data, contentType, func(pct int) {
			emit(pct / 2)
		}); err != nil {
			uploadFailure(w, streamed, http.StatusInternalServerError, "failed to store uploaded file: "+err.Error())
			return
		}

		controller := NewController(deps.Stores, deps.Notifier, func(pct int) {
			emit(50 + pct/2)
		})
		result, err := controller.Ingest(ctx, userID, header.Filename, fileType, key, hash, data)
		if err != nil {
			var parseErr *ParseError
			status := http.StatusInternalServerError
			if errors.As(err, &parseErr) {
				status = http.StatusBadRequest
			}
			uploadFailure(w, streamed, status, err.Error())
			return
		}

		logger.Audit("user %s ingested %s: %d rows, %d ok, %d failed",
			userID, header.Filename, result.TotalRows, result.SuccessfulRows, result.FailedRows)
		notification.Push(userID, notification.TypeUpload,
			fmt.Sprintf("%s ingested: %d rows, %d ok, %d failed",
				header.Filename, result.TotalRows, result.SuccessfulRows, result.FailedRows))

		if streamed {
			line, merr := json.Marshal(map[string]interface{}{"type": "result", "success": true, "rows": result})
			if merr == nil {
				w.Write(append(line, '\n'))
				flusher.Flush()
			}
			return
		}
		api.RespondWithPayload(w, true, "", result)
	})
}

// uploadFailure reports an error on a response that may already be
// mid-stream. Once progress lines have gone out the status code is fixed,
// so the failure travels as a terminal event instead.
func uploadFailure(w http.ResponseWriter, streamed bool, status int, msg string) {
	if !streamed {
		api.RespondWithError(w, status, msg)
		return
	}
	log.Printf("[ERROR] %s", msg)
	line, err := json.Marshal(map[string]interface{}{"type": "result", "success": false, "error": msg})
	if err != nil {
		return
	}
	w.Write(append(line, '\n'))
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
