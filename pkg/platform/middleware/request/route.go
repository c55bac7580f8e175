package request

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chiRouteContext returns the matched route pattern, keeping metric label
// cardinality independent of wallet addresses in paths.
func chiRouteContext(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
