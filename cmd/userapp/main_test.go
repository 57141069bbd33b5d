package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ARTM2000/grove"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("DATABASE_URL", "memory://test")

	router, err := newRouter(NewConfig(), zap.NewNop())
	require.NoError(t, err)
	return router
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestShowUser(t *testing.T) {
	h := newTestRouter(t)

	t.Run("found", func(t *testing.T) {
		rec := get(t, h, "/users/2")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Request string `json:"request"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.ID)
		assert.Equal(t, "grace", body.Name)
		assert.Len(t, body.Request, 36)
	})

	t.Run("not found", func(t *testing.T) {
		rec := get(t, h, "/users/99")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := get(t, h, "/users/abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("each request gets its own id", func(t *testing.T) {
		var ids []string
		for n := 0; n < 2; n++ {
			var body struct {
				Request string `json:"request"`
			}
			rec := get(t, h, "/users/1")
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			ids = append(ids, body.Request)
		}
		assert.NotEqual(t, ids[0], ids[1])
	})
}

func TestDebugRules(t *testing.T) {
	h := newTestRouter(t)

	rec := get(t, h, "/debug/rules")
	require.Equal(t, http.StatusOK, rec.Code)

	var rules map[string]ruleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))

	db := rules[grove.ID[*Database]()]
	assert.True(t, db.Shared)
	assert.Equal(t, []string{"Seed"}, db.Calls)
	assert.Equal(t, []string{grove.Normalize(grove.ID[*RequestInfo]())}, rules[grove.ID[*ShowUser]()].ShareInstances)
	assert.False(t, rules[grove.ID[*UserService]()].Shared)
}

func TestMetrics(t *testing.T) {
	h := newTestRouter(t)
	_ = get(t, h, "/users/1")
	_ = get(t, h, "/users/1")

	db := grove.Normalize(grove.ID[*Database]())
	show := grove.Normalize(grove.ID[*ShowUser]())

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`userapp_container_instances_constructed_total{identifier=%q,lifetime="singleton"} 1`, db))
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`userapp_container_instances_reused_total{identifier=%q,lifetime="singleton"} 1`, db))
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`userapp_container_instances_constructed_total{identifier=%q,lifetime="transient"} 2`, show))
}
