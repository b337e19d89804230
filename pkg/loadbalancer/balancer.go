package loadbalancer

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
)

// LoadBalancer hands out targets round robin. The gateway uses it when a
// route lists more than one replica of the same service.
type LoadBalancer struct {
	servers []string
	mu      sync.Mutex
	current int
}

func NewLoadBalancer(servers []string) *LoadBalancer {
	return &LoadBalancer{
		servers: servers,
		current: 0,
	}
}

func (lb *LoadBalancer) GetNextServer() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}

// ServeHTTP proxies the request to the next server in rotation.
func (lb *LoadBalancer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := url.Parse(lb.GetNextServer())
	if err != nil {
		http.Error(w, "bad upstream URL", http.StatusBadGateway)
		return
	}
	httputil.NewSingleHostReverseProxy(target).ServeHTTP(w, r)
}
