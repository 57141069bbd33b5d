// Package grovehttp serves HTTP handlers built by a [grove.Container].
//
// Each HTTP request results in one top-level Create, so objects shared with
// [grove.ShareInstances] live exactly as long as the request. Constructors
// anywhere in the graph may declare *http.Request, http.ResponseWriter or
// context.Context parameters; they receive the values of the request being
// served.
//
//	a := grovehttp.New(c, grovehttp.WithLogger(log))
//	router.Get("/users/{id}", a.Handler(grove.ID[*ShowUser]()))
//
// The container performs no locking, so the adapter serialises graph
// construction. Handlers run concurrently once built.
package grovehttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/ARTM2000/grove"
)

// ErrNoRequest is returned when a request-bound type is created outside of
// an HTTP request served by the adapter.
var ErrNoRequest = errors.New("no http request in progress")

// Adapter turns container identifiers into http.Handlers.
type Adapter struct {
	mu  sync.Mutex
	c   *grove.Container
	log *zap.Logger

	// current request, set while mu is held
	r *http.Request
	w http.ResponseWriter
}

// Option configures an [Adapter].
type Option func(*Adapter)

// WithLogger sets the logger used to report handlers that could not be
// built. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an adapter for c and adds the rules that bind the request
// types to the request being served.
func New(c *grove.Container, opts ...Option) *Adapter {
	a := &Adapter{c: c, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	// never shared, even under a shared wildcard rule
	c.AddRule(grove.ID[*http.Request](), grove.Shared(false), grove.InstanceOfFactory(func(*grove.Container) (any, error) {
		if a.r == nil {
			return nil, ErrNoRequest
		}
		return a.r, nil
	}))
	c.AddRule(grove.ID[http.ResponseWriter](), grove.Shared(false), grove.InstanceOfFactory(func(*grove.Container) (any, error) {
		if a.w == nil {
			return nil, ErrNoRequest
		}
		return a.w, nil
	}))
	c.AddRule(grove.ID[context.Context](), grove.Shared(false), grove.InstanceOfFactory(func(*grove.Container) (any, error) {
		if a.r == nil {
			return nil, ErrNoRequest
		}
		return a.r.Context(), nil
	}))
	return a
}

// Create builds id for the request r. args are passed to the container as
// call-site arguments.
func (a *Adapter) Create(w http.ResponseWriter, r *http.Request, id string, args ...any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.r, a.w = r, w
	defer func() { a.r, a.w = nil, nil }()

	return a.c.Create(id, args...)
}

// Handler returns a handler that builds id for every request and serves
// the request with it. id must resolve to an http.Handler.
func (a *Adapter) Handler(id string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, err := a.handler(w, r, id)
		if err != nil {
			a.log.Error("building handler failed",
				zap.String("id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (a *Adapter) handler(w http.ResponseWriter, r *http.Request, id string) (http.Handler, error) {
	v, err := a.Create(w, r, id)
	if err != nil {
		return nil, err
	}
	h, ok := v.(http.Handler)
	if !ok {
		return nil, fmt.Errorf("%s: %T does not implement http.Handler", id, v)
	}
	return h, nil
}
