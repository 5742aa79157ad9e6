package httpserver

import (
	"net/http"
	"time"
)

// Request handling here is short: JSON bodies of a few KB and store round
// trips. The write timeout leaves headroom for the moderation decision
// transaction (5s ceiling) plus response encoding.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// New builds the civicwatch HTTP server around the assembled router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
