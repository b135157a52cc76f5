package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/ragd/internal/document"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// decodeJSON decodes the request body into dst, keeping numbers as
// json.Number so metadata round-trips without float conversion.
func decodeJSON(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var te *json.UnmarshalTypeError
		switch {
		case errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
			return err
		case errors.Is(err, io.EOF):
			return v1.NewValidationError(fieldBody, "Request body is required")
		case errors.As(err, &te) && te.Field != "":
			return v1.NewValidationError(te.Field, fmt.Sprintf("Expected %s, received %s", jsonKind(te.Type), receivedKind(te.Value)))
		default:
			return v1.NewValidationError(fieldBody, "Malformed JSON body")
		}
	}
	return nil
}

var numberType = reflect.TypeOf(json.Number(""))

// jsonKind names the JSON type that decodes into t.
func jsonKind(t reflect.Type) string {
	if t == numberType {
		return "number"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return t.String()
}

// receivedKind normalizes UnmarshalTypeError.Value, which may carry the
// literal after the kind ("number 5").
func receivedKind(value string) string {
	kind, _, _ := strings.Cut(value, " ")
	if kind == "bool" {
		return "boolean"
	}
	return kind
}

// validateQuery returns the trimmed query and the number of documents to
// retrieve.
func validateQuery(req v1.QueryRequest) (string, int, error) {
	ve := &v1.ValidationError{}

	query := strings.TrimSpace(req.Query)
	switch n := utf8.RuneCountInString(query); {
	case n == 0:
		ve.Add("query", "Query cannot be empty")
	case n > v1.MaxQueryLength:
		ve.Add("query", "Query is too long")
	}

	k := v1.DefaultK
	if req.K != "" {
		n, err := req.K.Int64()
		switch {
		case err != nil:
			ve.Add("k", "k must be an integer")
		case n < 1:
			ve.Add("k", "k must be at least 1")
		case n > v1.MaxK:
			ve.Add("k", fmt.Sprintf("Maximum number of results is %d", v1.MaxK))
		default:
			k = int(n)
		}
	}

	return query, k, ve.OrNil()
}

// validateDocument checks one document, reporting fields under prefix, and
// returns its trimmed content and metadata.
func validateDocument(ve *v1.ValidationError, prefix string, req v1.DocumentRequest) (string, document.Metadata) {
	content := strings.TrimSpace(req.Content)
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		ve.Add(prefix+"content", "Document content cannot be empty")
	case n > v1.MaxContentLength:
		ve.Add(prefix+"content", "Document content is too long")
	}

	metadata := document.Metadata(req.Metadata)
	if err := metadata.Validate(); err != nil {
		ve.Add(prefix+"metadata", err.Error())
	}
	return content, metadata
}

// validateDocuments checks every document of a process-multiple request.
func validateDocuments(req v1.ProcessMultipleRequest) ([]string, []document.Metadata, error) {
	ve := &v1.ValidationError{}
	if len(req.Documents) == 0 {
		ve.Add("documents", "At least one document is required")
		return nil, nil, ve
	}

	contents := make([]string, len(req.Documents))
	metadata := make([]document.Metadata, len(req.Documents))
	for i, d := range req.Documents {
		contents[i], metadata[i] = validateDocument(ve, fmt.Sprintf("documents[%d].", i), d)
	}
	return contents, metadata, ve.OrNil()
}
