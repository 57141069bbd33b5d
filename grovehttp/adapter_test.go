package grovehttp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ARTM2000/grove"
)

type tenantKey struct{}

type requestInfo struct {
	Name   string
	Tenant string
}

type audit struct{ Info *requestInfo }

type helloHandler struct {
	Info  *requestInfo
	Audit *audit
}

func (h *helloHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "hello %s from %s shared=%t", h.Info.Name, h.Info.Tenant, h.Info == h.Audit.Info)
}

type teapot struct{ W http.ResponseWriter }

func (t *teapot) ServeHTTP(http.ResponseWriter, *http.Request) {
	t.W.WriteHeader(http.StatusTeapot)
}

type fixture struct {
	c      *grove.Container
	a      *Adapter
	router chi.Router
	infos  []*requestInfo
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}

	reg := grove.NewRegistry()
	require.NoError(t, reg.Provide(func(r *http.Request, ctx context.Context) *requestInfo {
		info := &requestInfo{Name: chi.URLParam(r, "name")}
		if v, ok := ctx.Value(tenantKey{}).(string); ok {
			info.Tenant = v
		}
		f.infos = append(f.infos, info)
		return info
	}))
	require.NoError(t, reg.Provide(func(i *requestInfo) *audit { return &audit{Info: i} }))
	require.NoError(t, reg.Provide(func(i *requestInfo, a *audit) *helloHandler {
		return &helloHandler{Info: i, Audit: a}
	}))
	require.NoError(t, reg.Provide(func(w http.ResponseWriter) *teapot { return &teapot{W: w} }))

	core, logs := observer.New(zapcore.ErrorLevel)
	f.logs = logs
	f.c = grove.New(reg)
	f.a = New(f.c, WithLogger(zap.New(core)))

	f.router = chi.NewRouter()
	f.router.Method(http.MethodGet, "/hello/{name}", f.a.Handler(grove.ID[*helloHandler]()))
	f.router.Method(http.MethodGet, "/teapot", f.a.Handler(grove.ID[*teapot]()))
	f.router.Method(http.MethodGet, "/missing", f.a.Handler("$Missing"))
	f.router.Method(http.MethodGet, "/info/{name}", f.a.Handler(grove.ID[*requestInfo]()))
	return f
}

func (f *fixture) get(path string, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	t.Run("request values reach nested objects", func(t *testing.T) {
		f := newFixture(t)

		ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
		rec := f.get("/hello/gopher", ctx)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello gopher from acme shared=false", rec.Body.String())
	})

	t.Run("share instances spans one http request", func(t *testing.T) {
		f := newFixture(t)
		f.c.AddRule(grove.ID[*helloHandler](), grove.ShareInstances(grove.ID[*requestInfo]()))

		first := f.get("/hello/ann", nil)
		second := f.get("/hello/bob", nil)

		assert.Equal(t, "hello ann from  shared=true", first.Body.String())
		assert.Equal(t, "hello bob from  shared=true", second.Body.String())
		require.Len(t, f.infos, 2)
		assert.NotSame(t, f.infos[0], f.infos[1])
	})

	t.Run("response writer is injected", func(t *testing.T) {
		f := newFixture(t)

		rec := f.get("/teapot", nil)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("request types stay per request under a shared wildcard", func(t *testing.T) {
		f := newFixture(t)
		f.c.AddRule(grove.Wildcard, grove.Shared(true))
		f.c.AddRule(grove.ID[*helloHandler](), grove.Shared(false))
		f.c.AddRule(grove.ID[*requestInfo](), grove.Shared(false))
		f.c.AddRule(grove.ID[*audit](), grove.Shared(false))

		assert.Equal(t, "hello ann from  shared=false", f.get("/hello/ann", nil).Body.String())
		assert.Equal(t, "hello bob from  shared=false", f.get("/hello/bob", nil).Body.String())
	})

	t.Run("build failure is a 500 and is logged", func(t *testing.T) {
		f := newFixture(t)

		rec := f.get("/missing", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		entries := f.logs.FilterMessage("building handler failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "$Missing", entries[0].ContextMap()["id"])
		assert.Equal(t, "/missing", entries[0].ContextMap()["path"])
	})

	t.Run("non-handler is a 500", func(t *testing.T) {
		f := newFixture(t)

		rec := f.get("/info/x", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, 1, f.logs.Len())
	})

	t.Run("concurrent requests", func(t *testing.T) {
		f := newFixture(t)
		f.c.AddRule(grove.ID[*helloHandler](), grove.ShareInstances(grove.ID[*requestInfo]()))

		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = f.get(fmt.Sprintf("/hello/u%d", i), nil).Body.String()
			}()
		}
		wg.Wait()

		for i, got := range results {
			assert.Equal(t, fmt.Sprintf("hello u%d from  shared=true", i), got)
		}
	})
}

func TestCreateOutsideRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.Create(grove.ID[*requestInfo]())
	require.ErrorIs(t, err, ErrNoRequest)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	v, err := f.a.Create(httptest.NewRecorder(), req, grove.ID[*audit]())
	require.NoError(t, err)
	assert.NotNil(t, v.(*audit).Info)
}
