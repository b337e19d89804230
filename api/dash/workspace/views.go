package workspace

import (
	"sort"
	"strings"

	"InvoiceDesk/internal/recordstore"
)

// The sort helpers order a listing in place. An empty or unknown sort_by
// keeps the store's natural order; order "desc" reverses the comparison
// and anything else sorts ascending. Sorting is stable so equal keys keep
// the natural order between them.

func SortJobs(jobs []recordstore.UploadJob, sortBy, order string) {
	var less func(i, j int) bool
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "file_name":
		less = func(i, j int) bool { return jobs[i].FileName < jobs[j].FileName }
	case "status":
		less = func(i, j int) bool { return jobs[i].Status < jobs[j].Status }
	case "total_rows":
		less = func(i, j int) bool { return jobs[i].TotalRows < jobs[j].TotalRows }
	case "failed_rows":
		less = func(i, j int) bool { return jobs[i].FailedRows < jobs[j].FailedRows }
	case "started_at":
		less = func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) }
	default:
		return
	}
	sort.SliceStable(jobs, applyOrder(less, order))
}

func SortInvoices(invoices []recordstore.Invoice, sortBy, order string) {
	var less func(i, j int) bool
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "invoice_id":
		less = func(i, j int) bool { return invoices[i].InvoiceID < invoices[j].InvoiceID }
	case "currency":
		less = func(i, j int) bool { return invoices[i].Currency < invoices[j].Currency }
	case "amount":
		less = func(i, j int) bool { return invoices[i].Amount.LessThan(invoices[j].Amount) }
	case "issue_date":
		less = func(i, j int) bool { return invoices[i].IssueDate < invoices[j].IssueDate }
	case "due_date":
		less = func(i, j int) bool { return invoices[i].DueDate < invoices[j].DueDate }
	case "is_valid":
		less = func(i, j int) bool { return !invoices[i].IsValid && invoices[j].IsValid }
	case "created_at":
		less = func(i, j int) bool { return invoices[i].CreatedAt.Before(invoices[j].CreatedAt) }
	default:
		return
	}
	sort.SliceStable(invoices, applyOrder(less, order))
}

func SortSubmitted(subs []recordstore.SubmittedInvoice, sortBy, order string) {
	var less func(i, j int) bool
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "invoice_id":
		less = func(i, j int) bool { return subs[i].InvoiceID < subs[j].InvoiceID }
	case "currency":
		less = func(i, j int) bool { return subs[i].Currency < subs[j].Currency }
	case "amount":
		less = func(i, j int) bool { return subs[i].Amount.LessThan(subs[j].Amount) }
	case "submitted_at":
		less = func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) }
	case "submitted_by":
		less = func(i, j int) bool { return subs[i].SubmittedBy < subs[j].SubmittedBy }
	default:
		return
	}
	sort.SliceStable(subs, applyOrder(less, order))
}

func applyOrder(less func(i, j int) bool, order string) func(i, j int) bool {
	if strings.EqualFold(strings.TrimSpace(order), "desc") {
		return func(i, j int) bool { return less(j, i) }
	}
	return less
}

// FilterInvoicesByValidity narrows a listing to valid or invalid rows.
// The value comes straight off the query string: "true", "false" or
// anything else meaning no filter.
func FilterInvoicesByValidity(invoices []recordstore.Invoice, valid string) []recordstore.Invoice {
	switch strings.ToLower(strings.TrimSpace(valid)) {
	case "true":
		out := invoices[:0:0]
		for _, inv := range invoices {
			if inv.IsValid {
				out = append(out, inv)
			}
		}
		return out
	case "false":
		out := invoices[:0:0]
		for _, inv := range invoices {
			if !inv.IsValid {
				out = append(out, inv)
			}
		}
		return out
	default:
		return invoices
	}
}
