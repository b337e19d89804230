package resource

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"InvoiceDesk/internal/logger"
	"InvoiceDesk/internal/serviceiface"
)

// The registry is package-level so services can register their shared
// handles (stores, pools, hubs) as they start, before the manager service
// itself comes up. The manager only adds the heartbeat on top.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]interface{})
)

// Register publishes a named runtime handle. Re-registering a key
// replaces the previous value.
func Register(key string, res interface{}) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key] = res
}

// Lookup returns a registered handle by name.
func Lookup(key string) (interface{}, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	res, ok := registry[key]
	return res, ok
}

// Remove drops a registered handle.
func Remove(key string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, key)
}

// List returns the registered handle names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ResourceManager periodically reports what the process is holding so the
// audit log shows liveness even when no requests arrive.
type ResourceManager struct {
	stopChan          chan struct{}
	heartbeatInterval time.Duration
}

func NewResourceManagerService(cfg map[string]interface{}) serviceiface.Service {
	interval := 5 * time.Second
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	return &ResourceManager{
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
	}
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("ResourceManager started")
	}
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	close(rm.stopChan)
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			keys := List()
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("heartbeat: %d resources registered %v", len(keys), keys))
			}
		}
	}
}

// AddResource and GetResource keep the manager usable as an injected
// dependency; they operate on the same package registry.
func (rm *ResourceManager) AddResource(key string, res interface{}) {
	Register(key, res)
}

func (rm *ResourceManager) GetResource(key string) (interface{}, bool) {
	return Lookup(key)
}

func (rm *ResourceManager) RemoveResource(key string) {
	Remove(key)
}

func (rm *ResourceManager) ListResources() []string {
	return List()
}
