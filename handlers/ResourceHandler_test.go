package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"UserManagerService/handlers"
	"UserManagerService/response"
	"UserManagerService/store"
	"UserManagerService/validation"
)

type testGateway struct {
	router   *gin.Engine
	store    *store.Store
	registry *prometheus.Registry
}

func setupGateway(t *testing.T, mutate ...func(*handlers.Options)) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	n := 0
	s, err := store.Open(filepath.Join(t.TempDir(), "db.json"), []string{"users"}, store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("u%d", n)
	}))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	opts := handlers.Options{
		Store:    s,
		Schemas:  map[string]*validation.Schema{"users": validation.Users()},
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	r, err := handlers.NewRouter(opts)
	require.NoError(t, err)
	return &testGateway{router: r, store: s, registry: opts.Registry}
}

func (g *testGateway) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reqBody = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	g.router.ServeHTTP(recorder, req)
	return recorder
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"firstName":   "Jo",
		"lastName":    "Lee",
		"phoneNumber": "9876543210",
		"email":       "jo@x.com",
	}
}

func TestHealth(t *testing.T) {
	g := setupGateway(t)
	recorder := g.do(http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "API is running", recorder.Body.String())
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/plain")
}

func TestCreateAndList(t *testing.T) {
	g := setupGateway(t)

	t.Run("Lists an empty collection as an empty array", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `[]`, recorder.Body.String())
	})

	t.Run("Creates a user with a gateway assigned id", func(t *testing.T) {
		body := validBody()
		body["id"] = "client-chosen"
		recorder := g.do(http.MethodPost, "/api/users", body)

		assert.Equal(t, http.StatusCreated, recorder.Code)
		assert.JSONEq(t, `{"id":"u1","firstName":"Jo","lastName":"Lee","phoneNumber":"9876543210","email":"jo@x.com"}`, recorder.Body.String())
	})

	t.Run("Trims string fields before storing", func(t *testing.T) {
		body := validBody()
		body["firstName"] = "  Ann  "
		recorder := g.do(http.MethodPost, "/api/users", body)
		require.Equal(t, http.StatusCreated, recorder.Code)

		var created map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
		assert.Equal(t, "Ann", created["firstName"])
	})

	t.Run("Lists created users in order", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users", nil)
		var users []map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &users))
		require.Len(t, users, 2)
		assert.Equal(t, "u1", users[0]["id"])
		assert.Equal(t, "u2", users[1]["id"])
	})
}

func TestCreate_Invalid(t *testing.T) {
	g := setupGateway(t)

	t.Run("Returns 400 for malformed JSON", func(t *testing.T) {
		recorder := g.do(http.MethodPost, "/api/users", "{not json")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Returns 400 for a non-object body", func(t *testing.T) {
		recorder := g.do(http.MethodPost, "/api/users", "[1,2]")
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Returns every field error", func(t *testing.T) {
		body := validBody()
		body["firstName"] = "J"
		body["email"] = "nope"
		body["phoneNumber"] = 12345
		recorder := g.do(http.MethodPost, "/api/users", body)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		var msg response.Message
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &msg))
		assert.Equal(t, "Request Failed", msg.Status)
		assert.Equal(t, map[string]string{
			"firstName":   "First name must be at least 2 characters",
			"email":       "Please enter a valid email address",
			"phoneNumber": "Phone Number must be a string",
		}, msg.Errors)
	})

	t.Run("Nothing was stored", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users", nil)
		assert.JSONEq(t, `[]`, recorder.Body.String())
	})
}

func TestGetReplacePatchDelete(t *testing.T) {
	g := setupGateway(t)
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/users", validBody()).Code)

	t.Run("Gets a user by id", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users/u1", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"firstName":"Jo"`)
	})

	t.Run("Replaces a user keeping its id", func(t *testing.T) {
		body := validBody()
		body["lastName"] = "Park"
		recorder := g.do(http.MethodPut, "/api/users/u1", body)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"id":"u1","firstName":"Jo","lastName":"Park","phoneNumber":"9876543210","email":"jo@x.com"}`, recorder.Body.String())
	})

	t.Run("Rejects an invalid replacement", func(t *testing.T) {
		recorder := g.do(http.MethodPut, "/api/users/u1", map[string]interface{}{"firstName": "Jo"})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Patches only the given fields", func(t *testing.T) {
		recorder := g.do(http.MethodPatch, "/api/users/u1", map[string]interface{}{"email": "park@x.com"})
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"id":"u1","firstName":"Jo","lastName":"Park","phoneNumber":"9876543210","email":"park@x.com"}`, recorder.Body.String())
	})

	t.Run("Rejects an invalid patch", func(t *testing.T) {
		recorder := g.do(http.MethodPatch, "/api/users/u1", map[string]interface{}{"phoneNumber": "12"})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Deletes a user", func(t *testing.T) {
		recorder := g.do(http.MethodDelete, "/api/users/u1", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{}`, recorder.Body.String())

		assert.Equal(t, http.StatusNotFound, g.do(http.MethodGet, "/api/users/u1", nil).Code)
	})
}

func TestNotFound(t *testing.T) {
	g := setupGateway(t)

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"unknown resource list", http.MethodGet, "/api/posts", nil},
		{"unknown record get", http.MethodGet, "/api/users/missing", nil},
		{"unknown record put", http.MethodPut, "/api/users/missing", validBody()},
		{"unknown record delete", http.MethodDelete, "/api/users/missing", nil},
		{"unknown route", http.MethodGet, "/nowhere/at/all", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := g.do(tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusNotFound, recorder.Code)
		})
	}
}

func TestSchemalessResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"posts":[]}`), 0o644))
	s, err := store.Open(path, nil)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := handlers.NewRouter(handlers.Options{Store: s, Logger: log})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":"anything goes","views":3}`))
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"views":3`)
}

func TestCORS(t *testing.T) {
	g := setupGateway(t)

	t.Run("Answers preflight with 200 and no body", func(t *testing.T) {
		recorder := g.do(http.MethodOptions, "/api/users/u1", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, recorder.Body.String())
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
		for _, m := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
			assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), m)
		}
	})

	t.Run("Adds headers to normal responses", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users", nil)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimiter(t *testing.T) {
	g := setupGateway(t, func(o *handlers.Options) {
		o.RateLimit = 0.001
		o.RateBurst = 2
	})

	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/users", nil).Code)
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/users", nil).Code)

	recorder := g.do(http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	var msg response.Message
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &msg))
	assert.Equal(t, "The API is at capacity, try again later.", msg.Body)
}

func TestMetrics(t *testing.T) {
	g := setupGateway(t)
	g.do(http.MethodGet, "/api/users", nil)
	g.do(http.MethodGet, "/api/users", nil)
	g.do(http.MethodGet, "/api/users/missing", nil)

	expected := `
# HELP usermanager_endpoint_calls_total Total number of calls per gateway endpoint.
# TYPE usermanager_endpoint_calls_total counter
usermanager_endpoint_calls_total{endpoint="/api/:resource"} 2
usermanager_endpoint_calls_total{endpoint="/api/:resource/:id"} 1
# HELP usermanager_errors_total Total number of gateway responses with an error status.
# TYPE usermanager_errors_total counter
usermanager_errors_total{endpoint="/api/:resource/:id"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(g.registry, strings.NewReader(expected),
		"usermanager_endpoint_calls_total", "usermanager_errors_total"))

	recorder := g.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "usermanager_endpoint_calls_total")
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	g := setupGateway(t, func(o *handlers.Options) { o.StaticDir = dir })

	recorder := g.do(http.MethodGet, "/app.js", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "console.log(1)", recorder.Body.String())

	assert.Equal(t, "API is running", g.do(http.MethodGet, "/", nil).Body.String())
}

func TestNumericIDDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"users":[
		{"id":1,"firstName":"Ada","lastName":"Lovelace","phoneNumber":"9876543210","email":"ada@x.com"},
		{"id":1000000,"firstName":"Bob","lastName":"Stone","phoneNumber":"9876543211","email":"bob@x.com"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	s, err := store.Open(path, []string{"users"})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := handlers.NewRouter(handlers.Options{
		Store:   s,
		Schemas: map[string]*validation.Schema{"users": validation.Users()},
		Logger:  log,
	})
	require.NoError(t, err)
	g := &testGateway{router: r, store: s}

	t.Run("Lists numeric ids as strings", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		var users []map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &users))
		require.Len(t, users, 2)
		assert.Equal(t, "1", users[0]["id"])
		assert.Equal(t, "1000000", users[1]["id"])
	})

	t.Run("Finds a large numeric id by its decimal form", func(t *testing.T) {
		recorder := g.do(http.MethodGet, "/api/users/1000000", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"id":"1000000"`)
	})

	t.Run("Replaces a record keeping its id", func(t *testing.T) {
		recorder := g.do(http.MethodPut, "/api/users/1", validBody())
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"id":"1"`)
	})
}

func TestMutationsAreLogged(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	g := setupGateway(t, func(o *handlers.Options) { o.Logger = log })

	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/users", validBody()).Code)
	require.Equal(t, http.StatusOK, g.do(http.MethodPatch, "/api/users/u1", map[string]interface{}{"lastName": "Park"}).Code)

	var patched *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "record patched" {
			patched = e
		}
	}
	require.NotNil(t, patched, "patch must log its outcome")
	assert.Equal(t, "patch record", patched.Data["operation"])
	assert.Equal(t, "users", patched.Data["resource"])
	assert.Equal(t, "u1", patched.Data["id"])
}

func TestPatch_RejectsEmptyBodies(t *testing.T) {
	g := setupGateway(t)
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/users", validBody()).Code)

	for _, body := range []string{"", "null", "{bad"} {
		recorder := g.do(http.MethodPatch, "/api/users/u1", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "body %q", body)
		assert.Contains(t, recorder.Body.String(), "Invalid request body")
	}
}
