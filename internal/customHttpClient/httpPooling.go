package customHttpClient

import (
	"net/http"

	"github.com/akolanti/TranscriptRAG/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// New returns a client sharing one pooled transport, so the model and
// embedding clients reuse connections.
func New() *http.Client {
	return &http.Client{Transport: customTransport}
}
