package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tetuya0525/article-ingest-service/internal/archive"
	"github.com/tetuya0525/article-ingest-service/internal/article"
	"github.com/tetuya0525/article-ingest-service/internal/config"
	"github.com/tetuya0525/article-ingest-service/internal/hash/sha256"
	"github.com/tetuya0525/article-ingest-service/internal/ingest"
	publisherMemory "github.com/tetuya0525/article-ingest-service/internal/publisher/memory"
	storeMemory "github.com/tetuya0525/article-ingest-service/internal/store/memory"
)

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("doc-%d", g.n), nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Ingest: config.IngestConfig{
			MaxBodyBytes:          1 << 20,
			RequestTimeoutSeconds: 30,
			ListLimitDefault:      50,
			ListLimitMax:          200,
		},
	}
}

func newTestServer(cfg config.Config) (*Server, *storeMemory.Store) {
	store := storeMemory.New()
	svc := ingest.NewService(
		store,
		archive.NoOp{},
		publisherMemory.New(),
		sha256.New(),
		fixedClock{now: time.Unix(1700000000, 0).UTC()},
		&seqIDGen{},
		ingest.Config{Topic: "article-ingested"},
		zap.NewNop(),
	)
	return NewServer(svc, cfg, zap.NewNop()), store
}

func postJSON(t *testing.T, server *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

const validBody = `{"title":"On Memory","sourceType":"web","content":{"rawText":"body text"}}`

func TestServer_Ingest_Succeeds(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(testConfig())
	rec := postJSON(t, server, "/", validBody)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Body.String(), `"status":"success"`)
	require.Contains(t, rec.Body.String(), "Article successfully ingested.")
	require.Contains(t, rec.Body.String(), `"documentId":"doc-1"`)

	doc, err := store.GetArticle(t.Context(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, article.StatusReceived, doc.Status)
}

func TestServer_Ingest_VersionedRoute(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/v1/articles", validBody)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_Ingest_EmptyBody(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid JSON")
}

func TestServer_Ingest_MalformedJSON(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/", "{not json")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Could not parse request body as JSON")
}

func TestServer_Ingest_MissingField(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/", `{"sourceType":"web","content":{"rawText":"x"}}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Missing required field: title")
}

func TestServer_Ingest_ContentNotObject(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/", `{"title":"t","sourceType":"web","content":"just text"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Field 'content' must be an object with a 'rawText' key")
}

func TestServer_Ingest_BodyTooLarge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Ingest.MaxBodyBytes = 64
	server, _ := newTestServer(cfg)

	body := fmt.Sprintf(`{"title":"t","sourceType":"web","content":{"rawText":"%s"}}`,
		strings.Repeat("a", 256))
	rec := postJSON(t, server, "/", body)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Contains(t, rec.Body.String(), "Method not allowed")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Preflight(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestServer_GetArticle(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	rec := postJSON(t, server, "/", validBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/articles/doc-1", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"On Memory"`)
	require.Contains(t, rec.Body.String(), `"status":"received"`)
}

func TestServer_GetArticle_NotFound(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/articles/missing", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Article not found")
}

func TestServer_ListArticles(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	require.Equal(t, http.StatusCreated, postJSON(t, server, "/", validBody).Code)
	require.Equal(t, http.StatusCreated, postJSON(t, server, "/", validBody).Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/articles?status=received&limit=1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)
}

func TestServer_ListArticles_InvalidLimit(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/articles?limit=abc", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid query parameter: limit")
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Ingest.RateLimitRPS = 0.001
	cfg.Ingest.RateLimitBurst = 1
	server, _ := newTestServer(cfg)

	require.Equal(t, http.StatusCreated, postJSON(t, server, "/", validBody).Code)

	rec := postJSON(t, server, "/", validBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "Too many requests")
}

func TestServer_APIKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	server, _ := newTestServer(cfg)

	rec := postJSON(t, server, "/", validBody)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(validBody))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Health probes stay reachable without a key.
	healthReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	healthRec := httptest.NewRecorder()
	server.Handler().ServeHTTP(healthRec, healthReq)
	require.Equal(t, http.StatusOK, healthRec.Code)
}
