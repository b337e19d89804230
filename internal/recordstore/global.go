package recordstore

import "sync"

var (
	globalHubMu sync.RWMutex
	globalHub   *Hub
)

// SetGlobalHub publishes the hub for services that start independently of
// the invoice service. Set once at invoice-service startup.
func SetGlobalHub(h *Hub) {
	globalHubMu.Lock()
	defer globalHubMu.Unlock()
	globalHub = h
}

// GlobalHub returns the published hub, or nil before the invoice service
// has started. Callers resolve it lazily and must tolerate nil.
func GlobalHub() *Hub {
	globalHubMu.RLock()
	defer globalHubMu.RUnlock()
	return globalHub
}
