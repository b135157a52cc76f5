package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/extract"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to the RAG Implementation API")
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok"})
}

// handleQuery serves POST /api/rag/query.
func (s *Server) handleQuery(c echo.Context) error {
	return s.query(c, msgQueryFailed)
}

// handleSearch serves POST /api/documents/search, which behaves like
// /api/rag/query.
func (s *Server) handleSearch(c echo.Context) error {
	return s.query(c, msgSearchFailed)
}

func (s *Server) query(c echo.Context, failure string) error {
	var req v1.QueryRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	query, k, err := validateQuery(req)
	if err != nil {
		return err
	}

	resp, err := s.rag.Query(c.Request().Context(), query, k)
	if err != nil {
		return failed(failure, err)
	}
	return c.JSON(http.StatusOK, toQueryResponse(resp))
}

// handleDirectQuery serves POST /api/documents/direct-query.
func (s *Server) handleDirectQuery(c echo.Context) error {
	var req v1.QueryRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	// k is accepted but unused here.
	query, _, err := validateQuery(v1.QueryRequest{Query: req.Query})
	if err != nil {
		return err
	}

	resp, err := s.rag.DirectQuery(c.Request().Context(), query)
	if err != nil {
		return failed(msgDirectQueryFailed, err)
	}
	return c.JSON(http.StatusOK, v1.DirectQueryResponse{Answer: resp.Answer})
}

// handleAddDocument serves POST /api/rag/document.
func (s *Server) handleAddDocument(c echo.Context) error {
	var req v1.DocumentRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	ve := &v1.ValidationError{}
	content, metadata := validateDocument(ve, "", req)
	if err := ve.OrNil(); err != nil {
		return err
	}

	id, err := s.rag.AddDocument(c.Request().Context(), content, metadata)
	if err != nil {
		return failed(msgAddDocumentFailed, err)
	}
	return c.JSON(http.StatusOK, v1.AddDocumentResponse{
		Message:  "Document added successfully",
		ID:       id,
		Metadata: metadata.Map(),
	})
}

// handleDeleteDocument serves DELETE /api/rag/document/:id.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if err := s.rag.DeleteDocument(c.Request().Context(), id); err != nil {
		if errors.Is(err, v1.ErrInvalidInput) {
			return invalidField("id", err)
		}
		return failed(msgDeleteFailed, err)
	}
	return c.JSON(http.StatusOK, v1.DeleteDocumentResponse{
		Message: "Document deleted successfully",
		ID:      id,
	})
}

// handleProcess serves POST /api/documents/process.
func (s *Server) handleProcess(c echo.Context) error {
	var req v1.DocumentRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	ve := &v1.ValidationError{}
	content, metadata := validateDocument(ve, "", req)
	if err := ve.OrNil(); err != nil {
		return err
	}

	processed, err := s.processor.ProcessDocument(c.Request().Context(), content, metadata)
	if err != nil {
		return failed(msgProcessFailed, err)
	}
	return c.JSON(http.StatusOK, toProcessedDocument(processed))
}

// handleProcessMultiple serves POST /api/documents/process-multiple. One
// failing document fails the whole request.
func (s *Server) handleProcessMultiple(c echo.Context) error {
	var req v1.ProcessMultipleRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	contents, metadata, err := validateDocuments(req)
	if err != nil {
		return err
	}

	inputs := make([]ingest.Input, len(contents))
	for i := range contents {
		inputs[i] = ingest.Input{Content: contents[i], Metadata: metadata[i]}
	}
	processed, err := s.processor.ProcessDocuments(c.Request().Context(), inputs)
	if err != nil {
		return failed(msgProcessManyFailed, err)
	}

	out := make([]v1.ProcessedDocument, len(processed))
	for i, p := range processed {
		out[i] = toProcessedDocument(p)
	}
	return c.JSON(http.StatusOK, out)
}

// handleUpload serves POST /api/documents/upload: a multipart "file" with an
// optional "metadata" JSON object, extracted to text and processed.
func (s *Server) handleUpload(c echo.Context) error {
	if limit := s.config.MaxUploadBytes; limit > 0 {
		req := c.Request()
		if req.ContentLength > limit {
			return echo.ErrStatusRequestEntityTooLarge
		}
		req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.ErrStatusRequestEntityTooLarge
		}
		return v1.NewValidationError("file", "A file is required")
	}

	metadata := document.Metadata{}
	if raw := c.FormValue("metadata"); raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&metadata); err != nil {
			return v1.NewValidationError("metadata", "Metadata must be a JSON object")
		}
		if err := metadata.Validate(); err != nil {
			return v1.NewValidationError("metadata", err.Error())
		}
	}

	f, err := fh.Open()
	if err != nil {
		return failed(msgProcessFailed, fmt.Errorf("opening upload: %w", err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return failed(msgProcessFailed, fmt.Errorf("reading upload: %w", err))
	}

	extracted, err := extract.Extract(fh.Filename, data)
	if err != nil {
		return invalidField("file", err)
	}

	// A caller-supplied source wins over the file name.
	fileInfo := document.Metadata{"filename": fh.Filename, "type": extracted.Type, "size": fh.Size}
	if _, ok := metadata["source"]; !ok {
		fileInfo["source"] = fh.Filename
	}
	metadata = metadata.Merge(fileInfo)

	processed, err := s.processor.ProcessDocument(c.Request().Context(), extracted.Text, metadata)
	if err != nil {
		return failed(msgProcessFailed, err)
	}
	return c.JSON(http.StatusOK, toProcessedDocument(processed))
}
