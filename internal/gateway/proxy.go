package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/quickbite/platform/pkg/httpx"
)

// Proxy routes requests to backend services by longest matching path prefix.
type Proxy struct {
	routes []proxyRoute
}

type proxyRoute struct {
	prefix  string
	handler *httputil.ReverseProxy
}

// NewProxy builds a reverse proxy from a prefix→backend-URL table. Prefixes
// are sorted longest-first so /api/users/me beats /api when both are routed.
func NewProxy(backends map[string]string) (*Proxy, error) {
	p := &Proxy{}
	for prefix, backend := range backends {
		target, err := url.Parse(backend)
		if err != nil {
			return nil, err
		}
		p.routes = append(p.routes, proxyRoute{
			prefix:  prefix,
			handler: httputil.NewSingleHostReverseProxy(target),
		})
	}
	sort.Slice(p.routes, func(i, j int) bool {
		return len(p.routes[i].prefix) > len(p.routes[j].prefix)
	})
	return p, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range p.routes {
		if strings.HasPrefix(r.URL.Path, rt.prefix) {
			rt.handler.ServeHTTP(w, r)
			return
		}
	}
	httpx.WriteError(w, http.StatusNotFound, "not_found", "no route for path")
}
