package api

import (
	"InvoiceDesk/api/auth"
	"InvoiceDesk/internal/logger"
	"InvoiceDesk/pkg/loadbalancer"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
)

// Global reference to AuthService (set from main or manager)
var (
	authService     *auth.AuthService
	authServiceOnce sync.Once
)

// SetAuthService allows wiring the AuthService from main/manager
func SetAuthService(svc *auth.AuthService) {
	authServiceOnce.Do(func() {
		authService = svc
	})
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// LoginHandler handles POST /auth/login
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if authService == nil {
		http.Error(w, "Auth service unavailable", http.StatusInternalServerError)
		return
	}
	clientIP := extractClientIP(r)
	session, err := authService.Login(req.Username, req.Password, clientIP)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// LogoutHandler handles POST /auth/logout
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if authService == nil {
		http.Error(w, "Auth service unavailable", http.StatusInternalServerError)
		return
	}
	err := authService.Logout(req.SessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"logout successful"}`))
}

func auditGateway(msg string) {
	if logr := logger.GlobalLogger; logr != nil {
		logr.LogAudit(msg)
		return
	}
	log.Println(msg)
}

// proxyTo forwards one request to target, logging the round trip.
func proxyTo(target string, w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	// Try to extract userId from JSON body (if present)
	var userId string
	if r.Method == "POST" || r.Method == "PUT" {
		if r.Header.Get("Content-Type") == "application/json" {
			bodyBytes, err := io.ReadAll(r.Body)
			if err == nil && len(bodyBytes) > 0 {
				var bodyMap map[string]interface{}
				if err := json.Unmarshal(bodyBytes, &bodyMap); err == nil {
					if uid, ok := bodyMap["user_id"]; ok {
						userId, _ = uid.(string)
					}
				}
			}
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	auditGateway(fmt.Sprintf("[Gateway] Incoming request: %s %s from %s userId=%s", r.Method, r.URL.Path, clientIP, userId))

	url, err := url.Parse(target)
	if err != nil {
		auditGateway(fmt.Sprintf("[Gateway][ERROR] Proxy error: bad target URL %s for %s", target, r.URL.Path))
		http.Error(w, "Bad target URL", http.StatusInternalServerError)
		return
	}
	proxy := httputil.NewSingleHostReverseProxy(url)

	rw := &responseWriter{ResponseWriter: w, statusCode: 200}
	proxy.ServeHTTP(rw, r)
	if rw.statusCode >= 400 {
		auditGateway(fmt.Sprintf("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String()))
	} else {
		auditGateway(fmt.Sprintf("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode))
	}
}

// createReverseProxy returns a reverse proxy handler for the given target URL
func createReverseProxy(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proxyTo(target, w, r)
	}
}

// createBalancedProxy spreads requests across several replicas of the
// same service, round robin.
func createBalancedProxy(targets []string) http.HandlerFunc {
	lb := loadbalancer.NewLoadBalancer(targets)
	return func(w http.ResponseWriter, r *http.Request) {
		proxyTo(lb.GetNextServer(), w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// defaultRoutes maps path prefixes to the services behind the gateway.
var defaultRoutes = map[string][]string{
	"/invoice/": {"http://localhost:6143"},
	"/dash/":    {"http://localhost:4143"},
}

// routesFromConfig reads the gateway's route table from services.yaml.
// A route value may be a single target URL or a list of replicas.
func routesFromConfig(cfg map[string]interface{}) map[string][]string {
	raw, ok := cfg["routes"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return defaultRoutes
	}
	routes := make(map[string][]string, len(raw))
	for path, v := range raw {
		switch t := v.(type) {
		case string:
			routes[path] = []string{t}
		case []interface{}:
			var targets []string
			for _, item := range t {
				if s, ok := item.(string); ok {
					targets = append(targets, s)
				}
			}
			if len(targets) > 0 {
				routes[path] = targets
			}
		}
	}
	if len(routes) == 0 {
		return defaultRoutes
	}
	return routes
}

// StartGateway starts the API gateway server
func StartGateway(cfg map[string]interface{}) {
	mux := http.NewServeMux()

	// Auth endpoints
	mux.HandleFunc("/auth/login", LoginHandler)
	mux.HandleFunc("/auth/logout", LogoutHandler)

	// Operational endpoints
	mux.Handle("/ops/", NewOpsRouter())

	for path, targets := range routesFromConfig(cfg) {
		if len(targets) == 1 {
			mux.HandleFunc(path, createReverseProxy(targets[0]))
		} else {
			mux.HandleFunc(path, createBalancedProxy(targets))
		}
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		auditGateway("[Gateway] [Error] " + r.URL.Path + " from " + r.RemoteAddr + " (route not found)")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})

	port := "8081"
	if cfg != nil {
		switch p := cfg["port"].(type) {
		case string:
			if p != "" {
				port = p
			}
		case int:
			port = fmt.Sprintf("%d", p)
		case float64:
			port = fmt.Sprintf("%d", int(p))
		}
	}

	log.Println("API Gateway started on :" + port)
	err := http.ListenAndServe(":"+port, mux)
	if err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
