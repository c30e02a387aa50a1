// Package metrics exposes the Prometheus scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/promptdesk/promptdesk/pkg/application"
)

const defaultScrapePath = "/debug/prometheus"

// PrometheusController serves the default registry, which collects the
// change request and gate counters alongside the Go runtime metrics.
type PrometheusController struct {
	path string
}

func NewPrometheusController(path string) application.Controller {
	if path == "" {
		path = defaultScrapePath
	}
	return &PrometheusController{path: path}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
	r.Handle(c.path, handler).Methods(http.MethodGet)
}
