package api

import (
	"io"
	"net/http"
	"time"

	"InvoiceDesk/internal/dashboard"
	"InvoiceDesk/internal/notification"
	"InvoiceDesk/internal/resource"

	"github.com/gorilla/mux"
)

// NewOpsRouter serves the gateway's operational surface: liveness,
// session inventory, pending notifications, registered resources and
// connected stream clients.
func NewOpsRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ops/health", OpsHealthHandler).Methods("GET")
	router.HandleFunc("/ops/sessions", SessionsHandler).Methods("GET")
	router.HandleFunc("/ops/notifications", NotificationsHandler).Methods("GET")
	router.HandleFunc("/ops/resources", ResourcesHandler).Methods("GET")
	router.HandleFunc("/ops/stream-clients", StreamClientsHandler).Methods("GET")
	router.HandleFunc("/ops/message", PushMessageHandler).Methods("POST")

	return router
}

func OpsHealthHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithPayload(w, true, "", map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SessionsHandler lists every active session.
func SessionsHandler(w http.ResponseWriter, r *http.Request) {
	if authService == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Auth service unavailable")
		return
	}
	RespondWithPayload(w, true, "", authService.GetActiveSessions())
}

// NotificationsHandler returns a user's pending notices. With
// ?drain=true the feed is consumed; otherwise it is only peeked.
func NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var feed []notification.Entry
	if r.URL.Query().Get("drain") == "true" {
		feed = notification.Drain(userID)
	} else {
		feed = notification.Peek(userID)
	}
	if feed == nil {
		feed = []notification.Entry{}
	}
	RespondWithPayload(w, true, "", feed)
}

// ResourcesHandler lists the handles services registered at startup.
func ResourcesHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithPayload(w, true, "", resource.List())
}

// StreamClientsHandler reports who is connected to the live dashboard.
func StreamClientsHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithPayload(w, true, "", map[string]interface{}{
		"count":   dashboard.GetClientCount(),
		"clients": dashboard.GetClients(),
	})
}

// PushMessageHandler forwards the request body to a user's live
// dashboard stream. Delivery is best effort: a user without a
// connection just misses the message. Meant for operators verifying a
// stream end to end.
func PushMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "failed to read message body")
		return
	}
	if len(body) == 0 {
		RespondWithError(w, http.StatusBadRequest, "message body is required")
		return
	}

	dashboard.SendToUser(userID, body)
	RespondWithPayload(w, true, "", map[string]string{"sent_to": userID})
}
