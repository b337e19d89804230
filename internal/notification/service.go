package notification

import (
	"sync"
	"time"

	"InvoiceDesk/internal/dashboard"
)

// Notice types pushed by the invoice flows.
const (
	TypeUpload     = "upload"
	TypeDelete     = "delete"
	TypeSubmission = "submission"
	TypeSweep      = "sweep"
)

// maxPerUser bounds each user's pending feed; the oldest entries fall
// off once a user stops draining.
const maxPerUser = 100

type Entry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService keeps a per-user feed of notices that survive
// between dashboard polls. Pushes are mirrored to the live SSE stream,
// so a connected dashboard sees them immediately; the feed covers
// everyone else until they drain it.
type NotificationService struct {
	mu     sync.Mutex
	byUser map[string][]Entry
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		byUser: make(map[string][]Entry),
	}
}

func (ns *NotificationService) Push(userID, noticeType, message string) {
	ns.mu.Lock()
	feed := append(ns.byUser[userID], Entry{
		Type:      noticeType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	if len(feed) > maxPerUser {
		feed = feed[len(feed)-maxPerUser:]
	}
	ns.byUser[userID] = feed
	ns.mu.Unlock()

	dashboard.SendNotice(userID, noticeType, message)
}

// Peek returns a copy of the user's pending feed without consuming it.
func (ns *NotificationService) Peek(userID string) []Entry {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return append([]Entry(nil), ns.byUser[userID]...)
}

// Drain returns the user's pending feed and empties it.
func (ns *NotificationService) Drain(userID string) []Entry {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := ns.byUser[userID]
	delete(ns.byUser, userID)
	return out
}

var global = NewNotificationService()

func Push(userID, noticeType, message string) { global.Push(userID, noticeType, message) }

func Peek(userID string) []Entry { return global.Peek(userID) }

func Drain(userID string) []Entry { return global.Drain(userID) }
