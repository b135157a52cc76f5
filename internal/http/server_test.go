package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	httpserver "github.com/fyrsmithlabs/ragd/internal/http"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/ragtest"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

const (
	testAPIKey = "test-key"
	testDim    = 128
)

type testEnv struct {
	store  *ragtest.MemoryStore
	llm    *ragtest.FakeLLM
	logger *logging.TestLogger
	server *httpserver.Server
}

func newTestEnv(t *testing.T, mutate ...func(*httpserver.Config)) *testEnv {
	t.Helper()

	store := ragtest.NewMemoryStore(testDim)
	fake := &ragtest.FakeLLM{Answer: "Paris is the capital of France."}
	gen, err := llm.New(llm.Config{Temperature: 0.7}, llm.WithModel(fake))
	require.NoError(t, err)
	svc, err := rag.NewService(store, gen, nil)
	require.NoError(t, err)
	proc, err := ingest.NewProcessor(store, ingest.DefaultConfig(), nil)
	require.NoError(t, err)

	cfg := &httpserver.Config{
		Host:            "localhost",
		Port:            0,
		APIKey:          testAPIKey,
		RateLimitWindow: 15 * time.Minute,
		RateLimitMax:    100,
		BodyLimit:       "1M",
		MaxUploadBytes:  1 << 20,
	}
	for _, m := range mutate {
		m(cfg)
	}

	tl := logging.NewTestLogger()
	server, err := httpserver.NewServer(svc, proc, tl.Logger, cfg, httpserver.Options{Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)

	return &testEnv{store: store, llm: fake, logger: tl, server: server}
}

func (e *testEnv) send(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpserver.HeaderAPIKey, testAPIKey)
	return e.send(t, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) []v1.FieldError {
	t.Helper()
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Invalid input", body.Error)
	var details []v1.FieldError
	require.NoError(t, json.Unmarshal(body.Details, &details))
	return details
}

func fields(details []v1.FieldError) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = d.Field
	}
	return out
}

func TestNewServer_Validation(t *testing.T) {
	store := ragtest.NewMemoryStore(testDim)
	gen, err := llm.New(llm.Config{}, llm.WithModel(&ragtest.FakeLLM{}))
	require.NoError(t, err)
	svc, err := rag.NewService(store, gen, nil)
	require.NoError(t, err)
	proc, err := ingest.NewProcessor(store, ingest.DefaultConfig(), nil)
	require.NoError(t, err)
	logger := logging.NewTestLogger().Logger
	valid := httpserver.Config{APIKey: "k", RateLimitWindow: time.Minute, RateLimitMax: 1}

	_, err = httpserver.NewServer(nil, proc, logger, &valid, httpserver.Options{})
	assert.Error(t, err)
	_, err = httpserver.NewServer(svc, nil, logger, &valid, httpserver.Options{})
	assert.Error(t, err)
	_, err = httpserver.NewServer(svc, proc, nil, &valid, httpserver.Options{})
	assert.ErrorContains(t, err, "logger is required")
	_, err = httpserver.NewServer(svc, proc, logger, nil, httpserver.Options{})
	assert.Error(t, err)

	noKey := valid
	noKey.APIKey = ""
	_, err = httpserver.NewServer(svc, proc, logger, &noKey, httpserver.Options{})
	assert.Error(t, err)

	noLimit := valid
	noLimit.RateLimitMax = 0
	_, err = httpserver.NewServer(svc, proc, logger, &noLimit, httpserver.Options{})
	assert.Error(t, err)

	s, err := httpserver.NewServer(svc, proc, logger, &httpserver.Config{
		Host: "127.0.0.1", Port: 3001, APIKey: "k", RateLimitWindow: time.Minute, RateLimitMax: 1,
	}, httpserver.Options{Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3001", s.Addr())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[v1.HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the RAG Implementation API", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKey(t *testing.T) {
	env := newTestEnv(t)
	body := `{"query":"hello"}`

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(body))
		rec := env.send(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"API key is required"}`, rec.Body.String())
	})

	t.Run("wrong", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(body))
		req.Header.Set(httpserver.HeaderAPIKey, "nope")
		rec := env.send(t, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid API key"}`, rec.Body.String())
	})

	t.Run("applies to every api route", func(t *testing.T) {
		for _, path := range []string{"/api/rag/document", "/api/documents/process", "/api/documents/upload"} {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
			assert.Equal(t, http.StatusUnauthorized, env.send(t, req).Code, path)
		}
		req := httptest.NewRequest(http.MethodDelete, "/api/rag/document/1", nil)
		assert.Equal(t, http.StatusUnauthorized, env.send(t, req).Code)
	})

	assert.Empty(t, env.llm.Prompts())
}

func TestQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/document", map[string]any{
		"content":  "The capital of France is Paris.",
		"metadata": map[string]any{"source": "geo"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.post(t, "/api/rag/query", map[string]any{"query": "capital of France", "k": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[v1.QueryResponse](t, rec)
	assert.Equal(t, "Paris is the capital of France.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "The capital of France is Paris.", resp.Sources[0].Content)
	assert.Equal(t, "geo", resp.Sources[0].Metadata["source"])
	assert.Greater(t, resp.Sources[0].Similarity, 0.5)

	assert.Contains(t, env.llm.LastPrompt(), "Question: capital of France")
}

func TestQuery_EmptyStore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/query", map[string]any{"query": "anything"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"Paris is the capital of France.","sources":[]}`, rec.Body.String())
}

func TestQuery_TrimsQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/documents/search", map[string]any{"query": "  padded  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.llm.LastPrompt(), "Question: padded\n")
}

func TestQuery_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"empty query", map[string]any{"query": ""}, "query"},
		{"blank query", map[string]any{"query": "   "}, "query"},
		{"missing query", map[string]any{}, "query"},
		{"long query", map[string]any{"query": strings.Repeat("a", v1.MaxQueryLength+1)}, "query"},
		{"k zero", map[string]any{"query": "q", "k": 0}, "k"},
		{"k too large", map[string]any{"query": "q", "k": 11}, "k"},
		{"k fractional", map[string]any{"query": "q", "k": 2.5}, "k"},
		{"query not string", `{"query":5}`, "query"},
		{"k boolean", `{"query":"q","k":true}`, "k"},
		{"malformed json", `{"query":`, "body"},
		{"not an object", `[1]`, "body"},
		{"empty body", ``, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/rag/query", "/api/documents/search"} {
				rec := env.post(t, path, tt.body)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				assert.Contains(t, fields(fieldErrors(t, rec)), tt.field)
			}
		})
	}

	assert.Empty(t, env.llm.Prompts())
	assert.Equal(t, 0, env.store.Searches())
}

func TestQuery_TypeErrorMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/query", `{"query":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []v1.FieldError{{Field: "query", Message: "Expected string, received number"}}, fieldErrors(t, rec))

	rec = env.post(t, "/api/rag/document", `{"content":"x","metadata":"s"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []v1.FieldError{{Field: "metadata", Message: "Expected object, received string"}}, fieldErrors(t, rec))
}

func TestQuery_MaxLengthAccepted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/query", map[string]any{"query": strings.Repeat("é", v1.MaxQueryLength), "k": 10})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestQuery_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Err = errors.New("openai: 503")

	rec := env.post(t, "/api/rag/query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "An error occurred while processing your query", body.Error)
	assert.Contains(t, string(body.Details), "openai: 503")

	env.logger.AssertLogged(t, zapcore.ErrorLevel, "request failed")
}

func TestSearch_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailSearch(fmt.Errorf("%w: connection refused", v1.ErrPersistence))

	rec := env.post(t, "/api/documents/search", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to search documents", decode[errorBody](t, rec).Error)
}

func TestDirectQuery(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api/rag/document", map[string]any{"content": "The capital of France is Paris."})

	rec := env.post(t, "/api/documents/direct-query", map[string]any{"query": "capital of France", "k": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"Paris is the capital of France."}`, rec.Body.String())
	assert.Equal(t, 0, env.store.Searches())
	assert.Contains(t, env.llm.LastPrompt(), "Context:\n\n\nQuestion: capital of France")
}

func TestDirectQuery_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Err = errors.New("boom")

	rec := env.post(t, "/api/documents/direct-query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate response", decode[errorBody](t, rec).Error)
}

func TestAddDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/document", map[string]any{
		"content":  "  hello world  ",
		"metadata": map[string]any{"author": "me", "n": 1, "tags": []string{"a"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[v1.AddDocumentResponse](t, rec)
	assert.Equal(t, "Document added successfully", resp.Message)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, map[string]any{"author": "me", "n": float64(1), "tags": []any{"a"}}, resp.Metadata)

	docs := env.store.Docs()
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].Content)
	assert.Equal(t, json.Number("1"), docs[0].Metadata["n"])
}

func TestAddDocument_NoMetadata(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/rag/document", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{}, decode[v1.AddDocumentResponse](t, rec).Metadata)
}

func TestAddDocument_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"empty content", map[string]any{"content": ""}, "content"},
		{"long content", map[string]any{"content": strings.Repeat("x", v1.MaxContentLength+1)}, "content"},
		{"metadata not object", `{"content":"x","metadata":[1,2]}`, "metadata"},
		{"metadata string", `{"content":"x","metadata":"s"}`, "metadata"},
		{"content not string", `{"content":5}`, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.post(t, "/api/rag/document", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{tt.field}, fields(fieldErrors(t, rec)))
		})
	}
	assert.Empty(t, env.store.Docs())
}

func TestAddDocument_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailAddWhen(func(string) bool { return true })

	rec := env.post(t, "/api/rag/document", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "An error occurred while adding the document", body.Error)
	assert.Contains(t, string(body.Details), ragtest.ErrInjected.Error())
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	rec := env.post(t, "/api/rag/document", map[string]any{"content": "x"})
	id := decode[v1.AddDocumentResponse](t, rec).ID

	req := httptest.NewRequest(http.MethodDelete, "/api/rag/document/"+id, nil)
	req.Header.Set(httpserver.HeaderAPIKey, testAPIKey)
	rec = env.send(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, v1.DeleteDocumentResponse{Message: "Document deleted successfully", ID: id}, decode[v1.DeleteDocumentResponse](t, rec))
	assert.Empty(t, env.store.Docs())
}

func TestProcess(t *testing.T) {
	env := newTestEnv(t)

	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	rec := env.post(t, "/api/documents/process", map[string]any{
		"content":  content,
		"metadata": map[string]any{"source": "fox"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, string(raw["chunks"]), `"pageContent"`)

	resp := decode[v1.ProcessedDocument](t, rec)
	assert.Equal(t, strings.TrimSpace(content), resp.Content)
	assert.Equal(t, map[string]any{"source": "fox"}, resp.Metadata)
	require.Greater(t, len(resp.Chunks), 1)
	for i, c := range resp.Chunks {
		assert.Equal(t, float64(i), c.Metadata["chunkIndex"])
		assert.Equal(t, float64(len(resp.Chunks)), c.Metadata["totalChunks"])
		assert.Equal(t, "fox", c.Metadata["source"])
	}
	assert.Len(t, env.store.Docs(), len(resp.Chunks))
}

func TestProcessMultiple(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/documents/process-multiple", map[string]any{
		"documents": []map[string]any{
			{"content": "first", "metadata": map[string]any{"n": 1}},
			{"content": "second"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[[]v1.ProcessedDocument](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "first", resp[0].Content)
	assert.Equal(t, "second", resp[1].Content)
	assert.Equal(t, map[string]any{}, resp[1].Metadata)
}

func TestProcessMultiple_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.post(t, "/api/documents/process-multiple", map[string]any{
		"documents": []map[string]any{{"content": "ok"}, {"content": ""}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"documents[1].content"}, fields(fieldErrors(t, rec)))

	rec = env.post(t, "/api/documents/process-multiple", map[string]any{"documents": []any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"documents"}, fields(fieldErrors(t, rec)))

	assert.Empty(t, env.store.Docs())
}

func TestProcessMultiple_OneFailureFailsAll(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailAddWhen(func(content string) bool { return content == "bad" })

	rec := env.post(t, "/api/documents/process-multiple", map[string]any{
		"documents": []map[string]any{{"content": "good"}, {"content": "bad"}, {"content": "also good"}},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process documents", decode[errorBody](t, rec).Error)
}

func TestProcess_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailAddWhen(func(string) bool { return true })

	rec := env.post(t, "/api/documents/process", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process document", decode[errorBody](t, rec).Error)
}

func newUpload(t *testing.T, filename string, content []byte, metadata string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if metadata != "" {
		require.NoError(t, w.WriteField("metadata", metadata))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(httpserver.HeaderAPIKey, testAPIKey)
	return req
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, newUpload(t, "notes.txt", []byte("Uploaded notes about Go."), `{"category":"AI/ML"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[v1.ProcessedDocument](t, rec)
	assert.Equal(t, "Uploaded notes about Go.", resp.Content)
	assert.Equal(t, map[string]any{
		"category": "AI/ML",
		"filename": "notes.txt",
		"source":   "notes.txt",
		"type":     "text/plain",
		"size":     float64(len("Uploaded notes about Go.")),
	}, resp.Metadata)
	assert.Len(t, env.store.Docs(), 1)
}

func TestUpload_SourceOverride(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, newUpload(t, "notes.txt", []byte("text"), `{"source":"wiki"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wiki", decode[v1.ProcessedDocument](t, rec).Metadata["source"])
}

func TestUpload_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		req   *http.Request
		field string
	}{
		{"missing file", newUpload(t, "", nil, `{}`), "file"},
		{"unsupported type", newUpload(t, "report.docx", []byte("PK\x03\x04binary"), ""), "file"},
		{"empty text", newUpload(t, "empty.txt", []byte("   "), ""), "file"},
		{"bad metadata", newUpload(t, "a.txt", []byte("text"), `[1]`), "metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.send(t, tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.field}, fields(fieldErrors(t, rec)))
		})
	}
	assert.Empty(t, env.store.Docs())
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *httpserver.Config) { c.MaxUploadBytes = 512 })

	rec := env.send(t, newUpload(t, "big.txt", bytes.Repeat([]byte("a"), 4096), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, func(c *httpserver.Config) { c.BodyLimit = "1K" })

	rec := env.post(t, "/api/rag/document", map[string]any{"content": strings.Repeat("x", 4096)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.store.Docs())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *httpserver.Config) { c.RateLimitMax = 2 })

	for i := 0; i < 2; i++ {
		rec := env.send(t, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.send(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests, please try again later"}`, rec.Body.String())

	// Limited before authentication.
	req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(`{"query":"q"}`))
	assert.Equal(t, http.StatusTooManyRequests, env.send(t, req).Code)

	// Other clients have their own window.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, env.send(t, req).Code)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.send(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestRequestLogging(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	env.send(t, req)

	env.logger.AssertLogged(t, zapcore.InfoLevel, "http request")
	env.logger.AssertField(t, "http request", "request.id", "req-123")
	env.logger.AssertField(t, "http request", "status", int64(200))
	env.logger.AssertNoSecrets(t)
}
