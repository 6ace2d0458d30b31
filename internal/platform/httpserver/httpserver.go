package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized for a JSON API with small request bodies. WriteTimeout sits
// above the router's 30s handler timeout so a timed-out request still gets
// its 503 body before the connection is cut.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 90 * time.Second
	maxHeaderBytes    = 1 << 16
)

// New builds the ledger's HTTP server around the given handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
