package auth

import (
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/serviceiface"
	"InvoiceDesk/internal/session"
	"database/sql"
	"errors"
	"sync"
	"time"
)

type UserSession struct {
	SessionID     string
	UserID        string
	Name          string
	Email         string
	LastLoginTime string
	ClientIP      string
	IsLoggedIn    bool
}

// AuthService keeps the active session registry in memory. Handlers in
// other services resolve identities through GetActiveSessions, so a
// process restart logs everyone out.
type AuthService struct {
	db       *sql.DB
	maxUsers int
	ttl      time.Duration
	users    map[string]*UserSession
	byUser   map[string]*UserSession
	manager  *session.Manager
	mu       sync.Mutex
	stopCh   chan struct{}
}

func NewAuthService(db *sql.DB, maxUsers int, ttl time.Duration) serviceiface.Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		db:       db,
		maxUsers: maxUsers,
		ttl:      ttl,
		users:    make(map[string]*UserSession),
		byUser:   make(map[string]*UserSession),
		manager:  session.NewManager(),
		stopCh:   make(chan struct{}),
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	close(a.stopCh)
	return nil
}

func (a *AuthService) Login(username, password, clientIP string) (*UserSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.users {
		if s.Email == username && s.IsLoggedIn {
			s.LastLoginTime = time.Now().Format(time.RFC3339)
			s.ClientIP = clientIP
			logger.Audit("User %s re-logged in, returning existing session", username)
			return s, nil
		}
	}

	if len(a.users) >= a.maxUsers {
		return nil, errors.New("maximum concurrent users reached")
	}

	var userID, name, email string
	var status sql.NullString

	query := `
    SELECT u.id, u.display_name, u.email, u.status
    FROM users u
    WHERE u.email = $1 AND u.password = $2
    `
	err := a.db.QueryRow(query, username, password).Scan(&userID, &name, &email, &status)
	if err != nil {
		return nil, errors.New("invalid credentials or user not found")
	}
	if status.Valid && status.String != "" && status.String != "ACTIVE" {
		return nil, errors.New("user is not active")
	}

	handle := a.manager.CreateSession(userID, a.ttl)
	us := &UserSession{
		SessionID:     handle.ID,
		UserID:        userID,
		Name:          name,
		Email:         email,
		LastLoginTime: time.Now().Format(time.RFC3339),
		ClientIP:      clientIP,
		IsLoggedIn:    true,
	}
	a.users[handle.ID] = us
	a.byUser[userID] = us

	logger.Audit("User logged in: %s", username)
	return us, nil
}

func (a *AuthService) Logout(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, exists := a.users[sessionID]
	if !exists {
		return errors.New("session not found")
	}
	delete(a.users, sessionID)
	delete(a.byUser, s.UserID)
	a.manager.DeleteSession(sessionID)

	logger.Audit("User logged out: %s", s.UserID)
	return nil
}

func (a *AuthService) GetActiveSessions() []*UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessions := make([]*UserSession, 0, len(a.users))
	for _, s := range a.users {
		sessions = append(sessions, s)
	}
	return sessions
}

// SessionForUser returns the live session owned by userID, or nil when the
// user is not logged in or the session handle expired.
func (a *AuthService) SessionForUser(userID string) *UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	us, ok := a.byUser[userID]
	if !ok {
		return nil
	}
	if _, live := a.manager.GetSession(us.SessionID); !live {
		delete(a.users, us.SessionID)
		delete(a.byUser, userID)
		return nil
	}
	return us
}

func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.expireSessions()
		}
	}
}

func (a *AuthService) expireSessions() {
	removed := a.manager.CleanupExpiredSessions()
	if removed == 0 {
		return
	}
	a.mu.Lock()
	for id, s := range a.users {
		if _, live := a.manager.GetSession(id); !live {
			delete(a.users, id)
			delete(a.byUser, s.UserID)
		}
	}
	a.mu.Unlock()
	logger.Audit("Expired %d stale sessions", removed)
}

var globalAuthService *AuthService

// SetGlobalAuthService sets the global AuthService instance
func SetGlobalAuthService(svc *AuthService) {
	globalAuthService = svc
}

// GetActiveSessions returns active sessions from the global AuthService
func GetActiveSessions() []*UserSession {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.GetActiveSessions()
}

// SessionForUser resolves a user's live session through the global
// AuthService.
func SessionForUser(userID string) *UserSession {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.SessionForUser(userID)
}
