package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-cloudlib/core"
)

const KindGraphQL = "graphql"

// GraphQLAdapter posts {query, operationName, variables} documents. The
// query, operation name and variables are read from request metadata. A
// successful response body is replaced by the envelope's data member.
type GraphQLAdapter struct {
	Endpoint string
	REST     *RESTAdapter
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is one entry of the response errors member. Code is taken
// from extensions.code when present.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
	Code    string `json:"-"`
}

func (e *GraphQLError) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Extensions map[string]any `json:"extensions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Message = raw.Message
	e.Path = raw.Path
	if code, ok := raw.Extensions["code"].(string); ok {
		e.Code = code
	}
	return nil
}

func NewGraphQLAdapter(endpoint string, client HTTPDoer) *GraphQLAdapter {
	return &GraphQLAdapter{
		Endpoint: strings.TrimSpace(endpoint),
		REST:     NewRESTAdapter(client),
	}
}

func (*GraphQLAdapter) Kind() string {
	return KindGraphQL
}

func (a *GraphQLAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.REST == nil {
		return core.TransportResponse{}, transportError(
			"transport: graphql adapter requires a rest adapter",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	endpoint := strings.TrimSpace(req.URL)
	if endpoint == "" {
		endpoint = a.Endpoint
	}
	if endpoint == "" && strings.TrimSpace(a.REST.BaseURL) == "" {
		return core.TransportResponse{}, transportError(
			"transport: graphql endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	query, ok := readGraphQLQuery(req)
	if !ok {
		return core.TransportResponse{}, transportError(
			"transport: graphql query is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	payload := map[string]any{"query": query}
	operationName := readGraphQLOperationName(req.Metadata)
	if operationName != "" {
		payload["operationName"] = operationName
	}
	if variables, ok := readGraphQLVariables(req.Metadata); ok {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: marshal graphql payload",
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for key, value := range req.Headers {
		headers[key] = value
	}

	response, err := a.REST.Do(ctx, core.TransportRequest{
		Method:               http.MethodPost,
		URL:                  endpoint,
		Headers:              headers,
		Body:                 body,
		Metadata:             req.Metadata,
		Timeout:              req.Timeout,
		MaxResponseBodyBytes: req.MaxResponseBodyBytes,
	})
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: graphql request failed",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint, "operation": operationName},
		)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: graphql endpoint returned status %d", response.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":     KindGraphQL,
				"endpoint":    endpoint,
				"operation":   operationName,
				"status_code": response.StatusCode,
				"body":        truncateBody(response.Body),
			},
		)
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(response.Body, &envelope); err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode graphql response",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint, "operation": operationName},
		)
	}
	if len(envelope.Errors) > 0 {
		return core.TransportResponse{}, graphQLFailure(envelope.Errors, endpoint, operationName)
	}

	response.Body = envelope.Data
	response.Metadata = ensureMetadata(response.Metadata)
	response.Metadata["kind"] = KindGraphQL
	if operationName != "" {
		response.Metadata["operation"] = operationName
	}
	return response, nil
}

// graphQLFailure reports NOT_FOUND extension codes as not-found so callers can
// translate them into absent results.
func graphQLFailure(errs []GraphQLError, endpoint string, operationName string) error {
	messages := make([]string, 0, len(errs))
	codes := make([]string, 0, len(errs))
	notFound := false
	for _, item := range errs {
		messages = append(messages, strings.TrimSpace(item.Message))
		if item.Code != "" {
			codes = append(codes, item.Code)
			if strings.EqualFold(item.Code, "NOT_FOUND") {
				notFound = true
			}
		}
	}
	metadata := map[string]any{
		"adapter":   KindGraphQL,
		"endpoint":  endpoint,
		"operation": operationName,
		"errors":    messages,
	}
	if len(codes) > 0 {
		metadata["codes"] = codes
	}
	message := "transport: graphql errors: " + strings.Join(messages, "; ")
	if notFound {
		return transportError(message, goerrors.CategoryNotFound, http.StatusNotFound, metadata)
	}
	return transportError(message, goerrors.CategoryExternal, http.StatusBadGateway, metadata)
}

func truncateBody(body []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

func readGraphQLQuery(req core.TransportRequest) (string, bool) {
	if req.Metadata != nil {
		if query := strings.TrimSpace(fmt.Sprint(req.Metadata["query"])); query != "" && query != "<nil>" {
			return query, true
		}
	}
	if len(req.Body) == 0 {
		return "", false
	}
	query := strings.TrimSpace(string(req.Body))
	if query == "" {
		return "", false
	}
	return query, true
}

func readGraphQLOperationName(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	value := strings.TrimSpace(fmt.Sprint(metadata["operation_name"]))
	if value == "" || value == "<nil>" {
		return ""
	}
	return value
}

func readGraphQLVariables(metadata map[string]any) (map[string]any, bool) {
	if len(metadata) == 0 {
		return nil, false
	}
	value, ok := metadata["variables"]
	if !ok || value == nil {
		return nil, false
	}
	typed, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	cloned := make(map[string]any, len(typed))
	for key, item := range typed {
		cloned[key] = item
	}
	return cloned, true
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

var _ core.TransportAdapter = (*GraphQLAdapter)(nil)
