// Package httpserver builds the process's single http.Server. Lifecycle
// stays with the caller: main owns ListenAndServe and Shutdown.
package httpserver

import (
	"net/http"
	"time"
)

// Connection-level timeouts. Request deadlines belong to handlers; these
// only bound header reads and idle keep-alives so slow clients cannot pin
// connections.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
