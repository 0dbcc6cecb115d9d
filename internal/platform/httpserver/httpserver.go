package httpserver

import (
	"net/http"
	"time"
)

// New builds the registry's HTTP server. WriteTimeout sits above the 30s
// handler timeout so a slow mutation surfaces as a handler error rather than
// a dropped connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
