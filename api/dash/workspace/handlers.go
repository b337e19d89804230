package workspace

import (
	"net/http"
	"strings"

	"InvoiceDesk/api"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/api/utils"
	"InvoiceDesk/internal/recordstore"
)

// liveStores resolves the record stores through the global hub. The dash
// service starts independently of the invoice service, so resolution is
// lazy per request instead of once at startup.
func liveStores() (recordstore.Stores, bool) {
	hub := recordstore.GlobalHub()
	if hub == nil {
		return recordstore.Stores{}, false
	}
	return hub.Stores(), true
}

func listSetup(w http.ResponseWriter, r *http.Request) (string, recordstore.Stores, utils.PaginationParams, bool) {
	if r.Method != http.MethodGet {
		api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
		return "", recordstore.Stores{}, utils.PaginationParams{}, false
	}
	userID := api.GetUserIDFromCtx(r.Context())
	if userID == "" {
		api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
		return "", recordstore.Stores{}, utils.PaginationParams{}, false
	}
	stores, ok := liveStores()
	if !ok {
		api.RespondWithError(w, http.StatusServiceUnavailable, "record stores are not available yet")
		return "", recordstore.Stores{}, utils.PaginationParams{}, false
	}
	params, err := utils.ExtractPagination(r)
	if err != nil {
		api.RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", recordstore.Stores{}, utils.PaginationParams{}, false
	}
	return userID, stores, params, true
}

func respondPage(w http.ResponseWriter, rows interface{}, params utils.PaginationParams) {
	api.RespondWithStatus(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"rows":       rows,
		"pagination": params,
	})
}

// JobsHandler lists the caller's upload jobs. Query params: status,
// sort_by (file_name, status, total_rows, failed_rows, started_at),
// order (asc, desc), page, limit.
func JobsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, stores, params, ok := listSetup(w, r)
		if !ok {
			return
		}

		filter := recordstore.JobFilter{}
		if status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" {
			switch recordstore.JobStatus(status) {
			case recordstore.JobPending, recordstore.JobProcessing, recordstore.JobCompleted, recordstore.JobFailed:
				filter.Status = recordstore.JobStatus(status)
			default:
				api.RespondWithError(w, http.StatusBadRequest, "unknown status filter: "+status)
				return
			}
		}

		jobs, err := stores.Jobs.ListJobs(r.Context(), userID, filter)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to list jobs: "+err.Error())
			return
		}
		SortJobs(jobs, r.URL.Query().Get("sort_by"), r.URL.Query().Get("order"))

		params.SetPaginationStats(len(jobs))
		start, end := params.Bounds(len(jobs))
		page := jobs[start:end]
		if page == nil {
			page = []recordstore.UploadJob{}
		}
		respondPage(w, page, params)
	})
}

// InvoicesHandler lists the caller's workspace invoices. Query params:
// valid (true/false), job_id, sort_by (invoice_id, currency, amount,
// issue_date, due_date, is_valid, created_at), order, page, limit.
func InvoicesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, stores, params, ok := listSetup(w, r)
		if !ok {
			return
		}

		filter := recordstore.InvoiceFilter{UploadJobID: strings.TrimSpace(r.URL.Query().Get("job_id"))}
		invoices, err := stores.Invoices.ListInvoices(r.Context(), userID, filter)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to list invoices: "+err.Error())
			return
		}
		invoices = FilterInvoicesByValidity(invoices, r.URL.Query().Get("valid"))
		SortInvoices(invoices, r.URL.Query().Get("sort_by"), r.URL.Query().Get("order"))

		params.SetPaginationStats(len(invoices))
		start, end := params.Bounds(len(invoices))
		page := invoices[start:end]
		if page == nil {
			page = []recordstore.Invoice{}
		}
		respondPage(w, page, params)
	})
}

// SubmittedHandler lists the caller's permanent records. Query params:
// sort_by (invoice_id, currency, amount, submitted_at, submitted_by),
// order, page, limit.
func SubmittedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, stores, params, ok := listSetup(w, r)
		if !ok {
			return
		}

		subs, err := stores.Submitted.ListSubmitted(r.Context(), userID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, "failed to list submitted invoices: "+err.Error())
			return
		}
		SortSubmitted(subs, r.URL.Query().Get("sort_by"), r.URL.Query().Get("order"))

		params.SetPaginationStats(len(subs))
		start, end := params.Bounds(len(subs))
		page := subs[start:end]
		if page == nil {
			page = []recordstore.SubmittedInvoice{}
		}
		respondPage(w, page, params)
	})
}
