package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/health"
	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/pipeline"
	"github.com/jonwraymond/postinsights/secret"
)

const summary = "## What's Trending\n- Outbound\n\n🧠 **Trend Label:** AI-Powered Sales Automation"

type fixture struct {
	handler http.Handler
	session *secret.SessionProvider
	store   *cache.Store
	calls   *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	session := secret.NewSessionProvider()
	chain := secret.NewChain("POSTINSIGHTS_TEST_SERVER_KEY", session)
	store := cache.NewStore(cache.NewMemoryBackend())

	calls := new(atomic.Int32)
	gen := insight.TextGeneratorFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return summary, nil
	})
	factory := func(ctx context.Context) (insight.TextGenerator, error) {
		if _, err := chain.Resolve(ctx); err != nil {
			return nil, err
		}
		return gen, nil
	}

	p := pipeline.New(store, factory, pipeline.Config{Concurrency: 2}, nil)
	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(store.Backend()))
	agg.Register(health.NewCredentialChecker(chain))

	srv := New(p, chain, agg, nil, Config{})
	return &fixture{handler: srv.Handler(), session: session, store: store, calls: calls}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %q: %v", env.Data, err)
		}
	}
	return env
}

type resultsBody struct {
	Results []insightResult `json:"results"`
}

const salesBody = `{
  "authors": ["Bob", "Alice"],
  "posts": [
    {"author": "Bob", "engagement": 120, "primary_category": "Sales", "post_text": "one"},
    {"author": "Alice", "engagement": 80, "primary_category": "Sales", "post_text": "two"},
    {"author": "Alice", "engagement": 10, "primary_category": "Tech"}
  ],
  "categories": [{"category": "Sales"}]
}`

func TestPostInsights_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/insights", salesBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var got resultsBody
	decode(t, rec, &got)
	if len(got.Results) != 1 || got.Results[0].Status != pipeline.StatusConfigurationError {
		t.Fatalf("without key: results = %+v", got.Results)
	}

	f.session.Set("k-123")

	rec = f.do(t, http.MethodPost, "/v1/insights", salesBody)
	decode(t, rec, &got)
	r := got.Results[0]
	if r.Status != pipeline.StatusGenerated || r.FromCache || !r.Persisted {
		t.Fatalf("first generation = %+v", r)
	}
	if r.PostCount != 2 || r.TrendLabel != "AI-Powered Sales Automation" {
		t.Errorf("post_count/trend = %d/%q", r.PostCount, r.TrendLabel)
	}

	rec = f.do(t, http.MethodPost, "/v1/insights", salesBody)
	decode(t, rec, &got)
	if got.Results[0].Status != pipeline.StatusCached || !got.Results[0].FromCache {
		t.Errorf("second call = %+v, want cached", got.Results[0])
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("generator calls = %d, want 1", n)
	}
}

func TestPostInsights_DerivesCategories(t *testing.T) {
	f := newFixture(t)
	f.session.Set("k-123")

	body := `{"posts": [
	  {"author": "A", "engagement": 5, "primary_category": "Tech"},
	  {"author": "B", "engagement": 7, "primary_category": "Sales"}
	]}`
	rec := f.do(t, http.MethodPost, "/v1/insights", body)
	var got resultsBody
	decode(t, rec, &got)
	if len(got.Results) != 2 || got.Results[0].Category != "Sales" || got.Results[1].Category != "Tech" {
		t.Fatalf("results = %+v", got.Results)
	}
}

func TestPostInsights_InsufficientData(t *testing.T) {
	f := newFixture(t)
	f.session.Set("k-123")

	rec := f.do(t, http.MethodPost, "/v1/insights", `{"categories": [{"category": "Empty"}]}`)
	var got resultsBody
	decode(t, rec, &got)
	if got.Results[0].Status != pipeline.StatusInsufficientData {
		t.Errorf("status = %q", got.Results[0].Status)
	}
	if f.calls.Load() != 0 {
		t.Error("generator should not be called without posts")
	}
}

func TestPostInsights_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"posts": [`, "INVALID_JSON"},
		{"unknown field", `{"bogus": 1}`, "INVALID_JSON"},
		{"nothing to do", `{}`, "VALIDATION_ERROR"},
		{"negative engagement", `{"posts": [{"author": "A", "engagement": -1, "primary_category": "Sales"}]}`, "VALIDATION_ERROR"},
		{"blank category", `{"categories": [{"category": "  "}]}`, "VALIDATION_ERROR"},
		{"too many top posts", `{"categories": [{"category": "Sales", "top_posts": [` + strings.TrimSuffix(strings.Repeat(`{"author": "A", "engagement": 1, "primary_category": "Sales"},`, 6), ",") + `]}]}`, "VALIDATION_ERROR"},
		{"top posts over top_n", `{"top_n": 1, "categories": [{"category": "Sales", "top_posts": [{"author": "A", "engagement": 2}, {"author": "B", "engagement": 1}]}]}`, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/v1/insights", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("code = %d, want 400", rec.Code)
			}
			if env := decode(t, rec, nil); env.Code != tt.code {
				t.Errorf("code = %q, want %q", env.Code, tt.code)
			}
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	f := newFixture(t)
	f.session.Set("k-123")
	f.do(t, http.MethodPost, "/v1/insights", salesBody)

	var sum cache.Summary
	decode(t, f.do(t, http.MethodGet, "/v1/cache", ""), &sum)
	if sum.TotalCached != 1 || len(sum.Files) != 1 || sum.Files[0].Category != "Sales" {
		t.Fatalf("summary = %+v", sum)
	}

	if rec := f.do(t, http.MethodDelete, "/v1/cache", ""); rec.Code != http.StatusOK {
		t.Fatalf("clear code = %d", rec.Code)
	}
	decode(t, f.do(t, http.MethodGet, "/v1/cache", ""), &sum)
	if sum.TotalCached != 0 {
		t.Errorf("after clear total = %d", sum.TotalCached)
	}
}

func TestAPIKeyEndpoints(t *testing.T) {
	f := newFixture(t)

	var st apiKeyStatus
	decode(t, f.do(t, http.MethodGet, "/v1/settings/api-key", ""), &st)
	if st.Ready || st.Source != "none" {
		t.Fatalf("initial status = %+v", st)
	}

	if rec := f.do(t, http.MethodPut, "/v1/settings/api-key", `{"api_key": "   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank key code = %d, want 400", rec.Code)
	}

	rec := f.do(t, http.MethodPut, "/v1/settings/api-key", `{"api_key": "k-123"}`)
	decode(t, rec, &st)
	if !st.Ready || st.Source != "session" {
		t.Fatalf("after put = %+v", st)
	}
	if strings.Contains(rec.Body.String(), "k-123") {
		t.Error("response must not echo the key")
	}

	decode(t, f.do(t, http.MethodDelete, "/v1/settings/api-key", ""), &st)
	if st.Ready {
		t.Errorf("after delete = %+v", st)
	}
}

func TestAPIKey_SessionDisabled(t *testing.T) {
	chain := secret.NewChain("POSTINSIGHTS_TEST_SERVER_KEY", secret.NewEnvProvider())
	store := cache.NewStore(cache.NewMemoryBackend())
	srv := New(pipeline.New(store, nil, pipeline.Config{}, nil), chain, nil, nil, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/settings/api-key", strings.NewReader(`{"api_key":"x"}`)))
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409", rec.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "DEGRADED" {
		t.Errorf("/readyz without key = %d %q", rec.Code, rec.Body.String())
	}

	f.session.Set("k-123")
	rec = f.do(t, http.MethodGet, "/readyz", "")
	if rec.Body.String() != "OK" {
		t.Errorf("/readyz with key = %q", rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/insights", strings.NewReader("{"))
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("request id = %q, want req-42", got)
	}
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.RequestID != "req-42" {
		t.Errorf("error request_id = %q", e.RequestID)
	}
}

func TestRecover(t *testing.T) {
	srv := New(nil, nil, nil, nil, Config{})
	rec := httptest.NewRecorder()
	body := `{"categories": [{"category": "Sales"}]}`
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/insights", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestPrometheusMetricsRoute(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend())
	p := pipeline.New(store, nil, pipeline.Config{}, nil)

	off := New(p, nil, nil, nil, Config{}).Handler()
	rec := httptest.NewRecorder()
	off.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled /metrics code = %d, want 404", rec.Code)
	}

	on := New(p, nil, nil, nil, Config{PrometheusMetrics: true}).Handler()
	rec = httptest.NewRecorder()
	on.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("enabled /metrics code = %d, want 200", rec.Code)
	}
}
