package backend

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/drinks/core"
	"github.com/relabs-tech/drinks/core/access"
	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/notify"
)

// Backend is the drinks REST backend
type Backend struct {
	router     *mux.Router
	repository drinks.Repository
	guard      *access.Guard
	notifier   core.Notifier
	metrics    *metrics
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Repository stores the drinks. This is mandatory.
	Repository drinks.Repository
	// Verifier verifies the bearer tokens of protected routes. This is mandatory.
	Verifier access.TokenVerifier
	// Notifier receives a notification for every successful mutation. This is optional.
	Notifier core.Notifier
	// Registry is the prometheus registry for the http metrics. If nil, the
	// backend creates its own registry with go and process collectors. This is optional.
	Registry *prometheus.Registry
}

// New realizes the actual backend and adds all routes to the router
func New(bb *Builder) *Backend {
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.Repository == nil {
		panic("Repository is missing")
	}
	if bb.Verifier == nil {
		panic("Verifier is missing")
	}

	notifier := bb.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	b := &Backend{
		router:     bb.Router,
		repository: bb.Repository,
		guard:      access.NewGuard(bb.Verifier),
		notifier:   notifier,
		metrics:    newMetrics(bb.Registry),
	}

	b.router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	b.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	b.handleMetrics(b.router)
	b.handleCORS()
	b.handleCompression()
	b.handleVersion(b.router)
	b.handleDrinks(b.router)
	return b
}

// Router returns the router of the backend
func (b *Backend) Router() *mux.Router {
	return b.router
}

// ServeHTTP makes the backend an http.Handler
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Debugln("no route for", r.URL, r.Method)
	writeError(w, http.StatusNotFound, messageNotFound)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Debugln("method not allowed for", r.URL, r.Method)
	writeError(w, http.StatusMethodNotAllowed, messageMethodNotAllowed)
}
