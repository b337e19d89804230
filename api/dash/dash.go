package dash

import (
	"log"
	"net/http"

	"InvoiceDesk/api/auth"
	"InvoiceDesk/api/constants"
	"InvoiceDesk/api/dash/workspace"
	middlewares "InvoiceDesk/api/middlewares"
	"InvoiceDesk/internal/dashboard"
)

// StartDashService serves the read-side of the workspace: paginated list
// views over jobs, invoices and submitted records, plus the SSE stream
// that pushes fresh snapshots whenever the write side changes something.
func StartDashService() {
	sse := dashboard.NewSSEServer()
	session := middlewares.SessionMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/dash/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Dashboard Service is active"))
	})

	mux.Handle("/dash/jobs", session(workspace.JobsHandler()))
	mux.Handle("/dash/invoices", session(workspace.InvoicesHandler()))
	mux.Handle("/dash/submitted", session(workspace.SubmittedHandler()))

	// EventSource cannot attach a JSON body, so the stream authenticates
	// the query-string user against the live session registry instead of
	// going through the session middleware.
	mux.HandleFunc("/dash/stream", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "user_id parameter required", http.StatusBadRequest)
			return
		}
		if auth.SessionForUser(userID) == nil {
			http.Error(w, constants.ErrInvalidSession, http.StatusUnauthorized)
			return
		}
		sse.HandleSSE(w, r)
	})

	log.Println("Dashboard Service started on :4143")
	if err := http.ListenAndServe(":4143", mux); err != nil {
		log.Fatalf("Dashboard Service failed: %v", err)
	}
}
