package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
	if len(e.Details) > 0 && string(e.Details) != "null" {
		msg += " " + string(e.Details)
	}
	return msg
}

// client calls the ragd HTTP API.
type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newClient(baseURL, apiKey string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *client) Health(ctx context.Context) (*v1.HealthResponse, error) {
	var out v1.HealthResponse
	return &out, c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
}

func (c *client) Query(ctx context.Context, query string, k int) (*v1.QueryResponse, error) {
	var out v1.QueryResponse
	return &out, c.doJSON(ctx, http.MethodPost, "/api/rag/query", queryBody(query, k), &out)
}

func (c *client) Search(ctx context.Context, query string, k int) (*v1.QueryResponse, error) {
	var out v1.QueryResponse
	return &out, c.doJSON(ctx, http.MethodPost, "/api/documents/search", queryBody(query, k), &out)
}

func (c *client) DirectQuery(ctx context.Context, query string) (*v1.DirectQueryResponse, error) {
	var out v1.DirectQueryResponse
	return &out, c.doJSON(ctx, http.MethodPost, "/api/documents/direct-query", v1.QueryRequest{Query: query}, &out)
}

func (c *client) AddDocument(ctx context.Context, doc v1.DocumentRequest) (*v1.AddDocumentResponse, error) {
	var out v1.AddDocumentResponse
	return &out, c.doJSON(ctx, http.MethodPost, "/api/rag/document", doc, &out)
}

func (c *client) DeleteDocument(ctx context.Context, id string) (*v1.DeleteDocumentResponse, error) {
	var out v1.DeleteDocumentResponse
	return &out, c.doJSON(ctx, http.MethodDelete, "/api/rag/document/"+url.PathEscape(id), nil, &out)
}

func (c *client) Process(ctx context.Context, doc v1.DocumentRequest) (*v1.ProcessedDocument, error) {
	var out v1.ProcessedDocument
	return &out, c.doJSON(ctx, http.MethodPost, "/api/documents/process", doc, &out)
}

func (c *client) ProcessMultiple(ctx context.Context, docs []v1.DocumentRequest) ([]v1.ProcessedDocument, error) {
	var out []v1.ProcessedDocument
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/process-multiple", v1.ProcessMultipleRequest{Documents: docs}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends a file for server-side text extraction and processing.
func (c *client) Upload(ctx context.Context, filename string, content io.Reader, metadata map[string]any) (*v1.ProcessedDocument, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if err := w.WriteField("metadata", string(raw)); err != nil {
			return nil, fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var out v1.ProcessedDocument
	return &out, c.do(ctx, http.MethodPost, "/api/documents/upload", w.FormDataContentType(), &buf, &out)
}

func queryBody(query string, k int) v1.QueryRequest {
	req := v1.QueryRequest{Query: query}
	if k > 0 {
		req.K = json.Number(fmt.Sprint(k))
	}
	return req
}

func (c *client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		var er struct {
			Error   string          `json:"error"`
			Details json.RawMessage `json:"details"`
		}
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			apiErr.Message, apiErr.Details = er.Error, er.Details
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
