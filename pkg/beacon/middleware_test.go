package beacon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panicky(v any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(v)
	})
}

func TestMiddlewareReportsOnceAndWrites500(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c)

	rec := httptest.NewRecorder()
	client.Middleware(panicky(errors.New("handler exploded"))).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))

	assert.Equal(t, 1, c.count())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestMiddlewareNonErrorPanicValue(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c)

	rec := httptest.NewRecorder()
	client.Middleware(panicky("string panic")).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))

	exc := data(t, c.last(t))["body"].(map[string]any)["trace"].(map[string]any)["exception"].(map[string]any)
	assert.Equal(t, "Error", exc["class"])
	assert.Equal(t, "string panic", exc["message"])
}

func TestMiddlewareRethrowPropagatesOriginalValue(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c, WithRethrow())

	original := errors.New("keep me intact")

	defer func() {
		v := recover()
		require.NotNil(t, v)
		assert.Same(t, original, v.(error))
		// The report was issued before the rethrow.
		assert.Equal(t, 1, c.count())
	}()

	client.Middleware(panicky(original)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/run", nil))
	t.Fatal("expected panic to propagate")
}

func TestMiddlewareErrorResponder(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c, WithErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, err.Error())
	}))

	rec := httptest.NewRecorder()
	client.Middleware(panicky(errors.New("upstream broke"))).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))

	assert.Equal(t, 1, c.count())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream broke", rec.Body.String())
}

func TestMiddlewareAttachesRequestContext(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c)

	req := httptest.NewRequest(http.MethodPost, "/orders?limit=5", nil)
	req.Host = "svc.example"
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Custom", "kept")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	client.Middleware(panicky(errors.New("boom"))).
		ServeHTTP(httptest.NewRecorder(), req)

	reqBlock := data(t, c.last(t))["request"].(map[string]any)
	assert.Equal(t, "http://svc.example/orders", reqBlock["url"])
	assert.Equal(t, http.MethodPost, reqBlock["method"])
	assert.Equal(t, "limit=5", reqBlock["query_string"])
	assert.Equal(t, "203.0.113.9", reqBlock["user_ip"])

	headers := reqBlock["headers"].(map[string]any)
	assert.Equal(t, "[SCRUBBED]", headers["Authorization"])
	assert.Equal(t, "kept", headers["X-Custom"])
}

func TestMiddlewareBodyOmittedByDefault(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c)

	rec := httptest.NewRecorder()
	handler := client.Wrap(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	})
	handler(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	reqBlock := data(t, c.last(t))["request"].(map[string]any)
	_, hasBody := reqBlock["body"]
	assert.False(t, hasBody)
}

func TestMiddlewareNoPanicNoReport(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c)

	rec := httptest.NewRecorder()
	client.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, c.count())
}

func TestRequestBodyIncludedWhenConfigured(t *testing.T) {
	c := newCollector(t)
	client := newTestClient(t, c, WithRequestBodies())

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	client.Error(req.Context(), errors.New("login failed"),
		WithRequest(req),
		WithRequestBody(map[string]any{"password": "hunter2", "username": "alice"}),
	)

	body := data(t, c.last(t))["request"].(map[string]any)["body"].(map[string]any)
	assert.Equal(t, "[SCRUBBED]", body["password"])
	assert.Equal(t, "alice", body["username"])
}
